// Package notify publishes engine transitions to an AMQP topic exchange.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pmflow/app/workflow"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

const (
	publisherID = "pmflow.engine"
	contentType = "application/json"
)

// Msg is the notification envelope, one per transition.
type Msg struct {
	ContextRequestID string                 `json:"_context_request_id"`
	ContextUserID    string                 `json:"_context_user_id"`
	EventType        string                 `json:"event_type"`
	Payload          map[string]interface{} `json:"payload"`
	Priority         string                 `json:"priority"`
	PublisherID      string                 `json:"publisher_id"`
	MessageID        string                 `json:"message_id"`
	Timestamp        string                 `json:"timestamp"`
	RequestID        string                 `json:"request_id"`
}

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Publisher is a workflow.Listener. Publish failures are logged and dropped;
// the transition they describe is already committed.
type Publisher struct {
	mu      sync.Mutex
	channel Channel
	conn    *amqp.Connection
	cfg     Config
}

// NewPublisher declares the exchange on channel and publishes through it.
func NewPublisher(channel Channel, cfg Config) (*Publisher, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("exchange is required")
	}
	if err := channel.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Publisher{channel: channel, cfg: cfg}, nil
}

// Dial connects to the broker at cfg.URL.
func Dial(cfg Config) (*Publisher, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp.Table{
			"product": "pmflow",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewMsg wraps a transition into the notification envelope.
func NewMsg(ctx *contextx.Context, t workflow.Transition) Msg {
	payload := map[string]interface{}{
		"request_id": t.RequestID,
		"process_id": t.ProcessID,
		"from":       t.From,
		"to":         t.To,
	}
	if t.TokenID != "" {
		payload["token_id"] = t.TokenID
		payload["element_id"] = t.ElementID
		payload["element_type"] = t.ElementType
	}
	if t.Message != "" {
		payload["message"] = t.Message
	}

	priority := "INFO"
	if t.Kind == workflow.RequestFailed || t.Kind == workflow.TokenFailed {
		priority = "ERROR"
	}
	msg := Msg{
		EventType:   "pmflow." + t.Kind,
		Payload:     payload,
		Priority:    priority,
		PublisherID: publisherID,
		MessageID:   uuid.NewString(),
		Timestamp:   t.At.UTC().Format(time.RFC3339Nano),
		RequestID:   t.RequestID,
	}
	if ctx != nil {
		msg.ContextRequestID = ctx.GetString(contextx.RequestIDKey)
	}
	if t.UserID != nil {
		msg.ContextUserID = fmt.Sprint(*t.UserID)
	}
	return msg
}

func (p *Publisher) routingKey(t workflow.Transition) string {
	return p.cfg.RoutingKey + "." + t.Kind
}

func (p *Publisher) Publish(msg Msg, routingKey string) error {
	body, err := json.Marshal(&msg)
	if err != nil {
		return err
	}
	publishing := amqp.Publishing{
		ContentType:     contentType,
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp.Persistent,
		MessageId:       msg.MessageID,
		Timestamp:       time.Now().UTC(),
		Body:            body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(p.cfg.Exchange, routingKey, false, false, publishing)
}

func (p *Publisher) OnTransition(ctx *contextx.Context, t workflow.Transition) {
	if err := p.Publish(NewMsg(ctx, t), p.routingKey(t)); err != nil {
		log.Errorf(ctx, "publish %s of request %s failed: %s", t.Kind, t.RequestID, err.Error())
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
