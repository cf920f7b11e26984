package workflow

import (
	"time"

	"pmflow/pkg/contextx"
	"pmflow/pkg/log"
)

const (
	RequestStarted   = "request-started"
	TokenCreated     = "token-created"
	TaskCompleted    = "task-completed"
	EventCaught      = "event-caught"
	TokenClosed      = "token-closed"
	TokenFailed      = "token-failed"
	ScriptCompleted  = "script-completed"
	RequestCompleted = "request-completed"
	RequestCanceled  = "request-canceled"
	RequestFailed    = "request-failed"
)

// Transition describes one state change of a request or one of its tokens.
type Transition struct {
	Kind        string    `json:"kind"`
	RequestID   string    `json:"request_id"`
	ProcessID   string    `json:"process_id"`
	TokenID     string    `json:"token_id,omitempty"`
	ElementID   string    `json:"element_id,omitempty"`
	ElementType string    `json:"element_type,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to"`
	UserID      *uint     `json:"user_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	At          time.Time `json:"at"`
}

// Listener receives transitions once the transaction that made them has
// committed. Listeners must not block for long.
type Listener interface {
	OnTransition(ctx *contextx.Context, t Transition)
}

type ListenerFunc func(ctx *contextx.Context, t Transition)

func (f ListenerFunc) OnTransition(ctx *contextx.Context, t Transition) {
	f(ctx, t)
}

// LogListener writes every transition to the structured log.
type LogListener struct{}

func (LogListener) OnTransition(ctx *contextx.Context, t Transition) {
	entry := log.GetLogger(ctx, "workflow").WithField("kind", t.Kind)
	if t.TokenID == "" {
		entry.Infof("request '%s' [%s -> %s, msg=%s]", t.RequestID, t.From, t.To, t.Message)
		return
	}
	entry.Debugf("token '%s' at '%s' [%s -> %s, msg=%s]", t.TokenID, t.ElementID, t.From, t.To, t.Message)
}
