package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pmflow/app/workflow"
	"pmflow/pkg/contextx"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_OnTransition(t *testing.T) {
	asserter := assert.New(t)
	ch := &fakeChannel{}

	p, err := NewPublisher(ch, Config{Exchange: "pmflow", RoutingKey: "pmflow.transitions"})
	if !asserter.NoError(err) {
		return
	}
	asserter.Equal([]string{"pmflow:topic"}, ch.declared)

	userID := uint(42)
	ctx := contextx.NewContext()
	ctx.Set(contextx.RequestIDKey, "http-1")
	p.OnTransition(ctx, workflow.Transition{
		Kind:        workflow.TaskCompleted,
		RequestID:   "r1",
		ProcessID:   "p1",
		TokenID:     "t1",
		ElementID:   "task1",
		ElementType: "task",
		From:        "ACTIVE",
		To:          "COMPLETED",
		UserID:      &userID,
		At:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	if asserter.Len(ch.published, 1) {
		sent := ch.published[0]
		asserter.Equal("pmflow", sent.exchange)
		asserter.Equal("pmflow.transitions.task-completed", sent.key)
		asserter.Equal("application/json", sent.msg.ContentType)

		var msg Msg
		if asserter.NoError(json.Unmarshal(sent.msg.Body, &msg)) {
			asserter.Equal("pmflow.task-completed", msg.EventType)
			asserter.Equal("INFO", msg.Priority)
			asserter.Equal("http-1", msg.ContextRequestID)
			asserter.Equal("42", msg.ContextUserID)
			asserter.Equal("task1", msg.Payload["element_id"])
			asserter.Equal("2026-01-01T00:00:00Z", msg.Timestamp)
			asserter.Equal(msg.MessageID, sent.msg.MessageId)
		}
	}

	asserter.NoError(p.Close())
	asserter.True(ch.closed)
}

func TestPublisher_FailuresAreSwallowed(t *testing.T) {
	asserter := assert.New(t)
	ch := &fakeChannel{publishErr: errors.New("channel closed")}

	p, err := NewPublisher(ch, Config{Exchange: "pmflow", RoutingKey: "pmflow.transitions"})
	if asserter.NoError(err) {
		p.OnTransition(nil, workflow.Transition{Kind: workflow.RequestFailed, RequestID: "r1", To: "ERROR"})
		asserter.Empty(ch.published)
	}

	_, err = NewPublisher(ch, Config{})
	asserter.Error(err)
}

func TestNewMsg_Failure(t *testing.T) {
	asserter := assert.New(t)

	msg := NewMsg(nil, workflow.Transition{Kind: workflow.RequestFailed, RequestID: "r9", To: "ERROR", Message: "card declined"})
	asserter.Equal("ERROR", msg.Priority)
	asserter.Equal("card declined", msg.Payload["message"])
	asserter.NotContains(msg.Payload, "token_id")
	asserter.Equal("", msg.ContextUserID)
}
