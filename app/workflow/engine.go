package workflow

import (
	"sync"
	"time"

	"pmflow/app/bpmn"
	"pmflow/app/objects"
	"pmflow/pkg/contextx"
	"pmflow/pkg/lockx"
	"pmflow/pkg/log"

	"gorm.io/gorm"
)

// Engine executes process requests. Every mutation of a request runs under
// the request's lock and inside one database transaction; listeners hear
// about the resulting transitions after the commit.
type Engine struct {
	db        *gorm.DB
	locker    lockx.Locker
	listeners []Listener
	now       func() time.Time

	definitions sync.Map
}

type Option func(e *Engine)

func WithListeners(listeners ...Listener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, listeners...)
	}
}

// WithClock replaces time.Now, mostly for timer tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(conn *gorm.DB, locker lockx.Locker, opts ...Option) *Engine {
	e := &Engine{
		db:     conn,
		locker: locker,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// Bind returns a copy of ctx that talks to the engine database.
func (e *Engine) Bind(ctx *contextx.Context) *contextx.Context {
	if ctx == nil {
		ctx = contextx.NewContext()
	}
	c := ctx.Clone()
	c.SetDB(e.db)
	return c
}

func (e *Engine) emit(ctx *contextx.Context, transitions []Transition) {
	for _, t := range transitions {
		for _, l := range e.listeners {
			l.OnTransition(ctx, t)
		}
	}
}

// definition parses a process version once; versions never change.
func (e *Engine) definition(v *objects.ProcessVersion) (bpmn.ResolvedDefinition, error) {
	if cached, ok := e.definitions.Load(v.ID); ok {
		return cached.(bpmn.ResolvedDefinition), nil
	}
	def, err := bpmn.Parse([]byte(v.Bpmn))
	if err != nil {
		return bpmn.ResolvedDefinition{}, objects.NewError(objects.InvalidDefinition, "%s", err.Error())
	}
	resolved := bpmn.ResolveAssignments(def, v.Users)
	e.definitions.Store(v.ID, resolved)
	return resolved, nil
}

func requestLockKey(requestID string) string {
	return "request:" + requestID
}

// withRequest loads a request and its tokens under the request lock and
// runs op in one transaction. op sees state read after the lock was taken.
func (e *Engine) withRequest(ctx *contextx.Context, requestID string, userID *uint, op func(x *execution) error) error {
	ctx = e.Bind(ctx)
	ctx.Set(contextx.ProcessKey, requestID)

	unlock, err := e.locker.Lock(ctx, requestLockKey(requestID))
	if err != nil {
		return err
	}
	defer unlock()

	var x *execution
	err = objects.Transaction(ctx, func(subCtx *contextx.Context) error {
		request, err := objects.QueryProcessRequestByID(subCtx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return objects.NewError(objects.RequestNotFound, "request %s not found", requestID)
		}
		version, err := objects.QueryProcessVersionByID(subCtx, request.ProcessVersionID)
		if err != nil {
			return err
		}
		if version == nil {
			return objects.NewError(objects.DefinitionNotFound, "version %s of request %s not found", request.ProcessVersionID, requestID)
		}
		def, err := e.definition(version)
		if err != nil {
			return err
		}
		tokens, err := objects.QueryTokensOfRequest(subCtx, requestID, nil)
		if err != nil {
			return err
		}
		x = newExecution(subCtx, e, request, def, tokens)
		x.userID = userID
		return op(x)
	})
	if err != nil {
		log.Debugf(ctx, "operation on request %s rolled back: %s", requestID, err.Error())
		return err
	}
	e.emit(ctx, x.transitions)
	return nil
}
