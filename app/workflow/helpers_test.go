package workflow

import (
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"pmflow/app/db/dbtest"
	"pmflow/app/objects"
	"pmflow/pkg/contextx"
	"pmflow/pkg/lockx"
)

type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) OnTransition(_ *contextx.Context, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []string
	for _, t := range r.transitions {
		kinds = append(kinds, t.Kind)
	}
	return kinds
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *Engine
	ctx    *contextx.Context
	rec    *recorder
	clock  *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   dbtest.NewContext(t),
		rec:   &recorder{},
		clock: &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
	f.engine = NewEngine(f.ctx.GetDB(), lockx.NewMemoryLocker(5*time.Second),
		WithListeners(f.rec), WithClock(f.clock.Now))
	return f
}

func readModel(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(path.Join("testdata", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func (f *fixture) deploy(t *testing.T, name string) *objects.Process {
	t.Helper()
	process, err := f.engine.CreateProcess(f.ctx, name, "", readModel(t, name), nil)
	if err != nil {
		t.Fatalf("deploy %s: %v", name, err)
	}
	return process
}

func (f *fixture) tokens(t *testing.T, requestID string) map[string]*objects.ProcessRequestToken {
	t.Helper()
	tokens, err := f.engine.GetTokens(f.ctx, requestID, nil)
	if err != nil {
		t.Fatalf("tokens of %s: %v", requestID, err)
	}
	byElement := map[string]*objects.ProcessRequestToken{}
	for _, tk := range tokens {
		byElement[tk.ElementID] = tk
	}
	return byElement
}

type requestState struct {
	Status string
	Data   map[string]interface{}
	Tokens map[string]string
}

// snapshot captures the request status, its data and every token status.
func (f *fixture) snapshot(t *testing.T, requestID string) requestState {
	t.Helper()
	request, tokens, err := f.engine.GetRequest(f.ctx, requestID)
	if err != nil {
		t.Fatalf("request %s: %v", requestID, err)
	}
	state := requestState{Status: request.Status, Data: request.Data.Clone(), Tokens: map[string]string{}}
	for _, tk := range tokens {
		state.Tokens[tk.ID] = tk.Status
	}
	return state
}

func uintPtr(v uint) *uint {
	return &v
}
