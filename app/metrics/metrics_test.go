package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"pmflow/app/workflow"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_OnTransition(t *testing.T) {
	asserter := assert.New(t)
	r := NewRecorder()

	for _, tr := range []workflow.Transition{
		{Kind: workflow.RequestStarted, To: "ACTIVE"},
		{Kind: workflow.TokenCreated, ElementType: "task", To: "ACTIVE"},
		{Kind: workflow.TokenCreated, ElementType: "scriptTask", To: "ACTIVE"},
		{Kind: workflow.TokenFailed, ElementType: "scriptTask", From: "ACTIVE", To: "FAILING"},
		{Kind: workflow.RequestFailed, From: "ACTIVE", To: "ERROR"},
	} {
		r.OnTransition(nil, tr)
	}

	asserter.Equal(float64(2), testutil.ToFloat64(r.transitions.WithLabelValues(workflow.TokenCreated)))
	asserter.Equal(float64(1), testutil.ToFloat64(r.tokens.WithLabelValues("task")))
	asserter.Equal(float64(1), testutil.ToFloat64(r.requests.WithLabelValues("ACTIVE")))
	asserter.Equal(float64(1), testutil.ToFloat64(r.requests.WithLabelValues("ERROR")))
	asserter.Equal(float64(1), testutil.ToFloat64(r.failures))
}

func TestRecorder_Handler(t *testing.T) {
	asserter := assert.New(t)
	r := NewRecorder()
	r.OnTransition(nil, workflow.Transition{Kind: workflow.RequestCompleted, To: "COMPLETED"})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if asserter.Equal(200, rec.Code) {
		body := rec.Body.String()
		asserter.True(strings.Contains(body, `pmflow_requests_total{status="COMPLETED"} 1`))
		asserter.Contains(body, "go_goroutines")
	}
}
