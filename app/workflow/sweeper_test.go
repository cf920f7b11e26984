package workflow

import (
	"testing"
	"time"

	"pmflow/app/objects"
	"pmflow/app/workflow/states"

	"github.com/stretchr/testify/assert"
)

func TestEngine_CatchEvents(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	process := f.deploy(t, "events.bpmn")
	request, err := f.engine.Start(f.ctx, process.ID, "start", map[string]interface{}{"order": "A-1"}, nil)
	if !asserter.NoError(err) {
		return
	}
	tokens := f.tokens(t, request.ID)
	payment := tokens["wait_payment"]
	timer := tokens["wait_timer"]
	if !asserter.NotNil(payment) || !asserter.NotNil(timer) {
		return
	}
	asserter.Equal("payment-received", payment.EventName)
	asserter.Nil(payment.DueAt)
	if asserter.NotNil(timer.DueAt) {
		asserter.True(timer.DueAt.Equal(f.clock.Now().Add(time.Hour)))
	}

	caught, err := f.engine.TriggerEvent(f.ctx, request.ID, "no-such-message", nil)
	if asserter.NoError(err) {
		asserter.Empty(caught)
	}

	caught, err = f.engine.TriggerEvent(f.ctx, request.ID, "payment-received", map[string]interface{}{"paid": true})
	if asserter.NoError(err) && asserter.Len(caught, 1) {
		asserter.Equal(payment.ID, caught[0].ID)
		asserter.Equal(states.CLOSED, caught[0].Status)
	}

	after := f.tokens(t, request.ID)
	if asserter.Contains(after, "ship") {
		asserter.Equal(states.ACTIVE, after["ship"].Status)
	}

	before := f.snapshot(t, request.ID)
	_, err = f.engine.TriggerCatchEvent(f.ctx, request.ID, payment.ID, map[string]interface{}{"late": true})
	asserter.True(objects.IsKind(err, objects.TokenNotWaiting))
	_, err = f.engine.TriggerCatchEvent(f.ctx, request.ID, after["ship"].ID, map[string]interface{}{"late": true})
	asserter.True(objects.IsKind(err, objects.TokenNotWaiting))
	_, err = f.engine.TriggerCatchEvent(f.ctx, request.ID, "unknown", nil)
	asserter.True(objects.IsKind(err, objects.TokenNotFound))
	asserter.Equal(before, f.snapshot(t, request.ID))

	reloaded, _, err := f.engine.GetRequest(f.ctx, request.ID)
	if asserter.NoError(err) {
		asserter.Equal(true, reloaded.Data["paid"])
		asserter.Equal("A-1", reloaded.Data["order"])
		asserter.NotContains(reloaded.Data, "late")
	}
}

func TestEngine_TriggerCatchEventByToken(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	process := f.deploy(t, "events.bpmn")
	request, err := f.engine.Start(f.ctx, process.ID, "start", nil, nil)
	if !asserter.NoError(err) {
		return
	}
	timer := f.tokens(t, request.ID)["wait_timer"]

	caught, err := f.engine.TriggerCatchEvent(f.ctx, request.ID, timer.ID, map[string]interface{}{"early": true})
	if asserter.NoError(err) {
		asserter.Equal(states.CLOSED, caught.Status)
		remind := f.tokens(t, request.ID)["remind"]
		if asserter.NotNil(remind) {
			asserter.Equal(states.COMPLETED, remind.Status)
		}
	}
}

func TestSweeper_SweepOnce(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	process := f.deploy(t, "events.bpmn")
	var requestIDs []string
	for i := 0; i < 3; i++ {
		request, err := f.engine.Start(f.ctx, process.ID, "start", nil, nil)
		if !asserter.NoError(err) {
			return
		}
		requestIDs = append(requestIDs, request.ID)
	}

	sweeper := NewSweeper(f.engine, SweeperConfig{Workers: 2})
	fired, err := sweeper.SweepOnce(f.ctx)
	if asserter.NoError(err) {
		asserter.Equal(0, fired)
	}

	f.clock.Advance(2 * time.Hour)
	fired, err = sweeper.SweepOnce(f.ctx)
	if asserter.NoError(err) {
		asserter.Equal(3, fired)
	}

	// a second pass finds nothing left to fire
	fired, err = sweeper.SweepOnce(f.ctx)
	if asserter.NoError(err) {
		asserter.Equal(0, fired)
	}

	for _, id := range requestIDs {
		tokens := f.tokens(t, id)
		asserter.Equal(states.CLOSED, tokens["wait_timer"].Status)
		if asserter.Contains(tokens, "remind") {
			asserter.Equal(states.COMPLETED, tokens["remind"].Status)
		}
		request, _, err := f.engine.GetRequest(f.ctx, id)
		if asserter.NoError(err) {
			asserter.Equal(true, request.Data["replied"])
			asserter.Equal("mail", request.Data["channel"])
			asserter.Equal(states.REQUEST_ACTIVE, request.Status)
		}
	}
}

func TestSweeper_FireTimersIsIdempotent(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	process := f.deploy(t, "events.bpmn")
	request, err := f.engine.Start(f.ctx, process.ID, "start", nil, nil)
	if !asserter.NoError(err) {
		return
	}
	timer := f.tokens(t, request.ID)["wait_timer"]

	fired, err := f.engine.FireTimers(f.ctx, request.ID, []string{timer.ID})
	if asserter.NoError(err) {
		asserter.Equal(0, fired)
	}

	f.clock.Advance(time.Hour)
	fired, err = f.engine.FireTimers(f.ctx, request.ID, []string{timer.ID})
	if asserter.NoError(err) {
		asserter.Equal(1, fired)
	}
	fired, err = f.engine.FireTimers(f.ctx, request.ID, []string{timer.ID})
	if asserter.NoError(err) {
		asserter.Equal(0, fired)
	}
}

func TestSweeper_SkipsWhenLockIsHeld(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	process := f.deploy(t, "events.bpmn")
	request, err := f.engine.Start(f.ctx, process.ID, "start", nil, nil)
	if !asserter.NoError(err) {
		return
	}

	held := objects.NewNamedLock()
	held.Name = sweepLockName
	if !asserter.NoError(held.Save(f.ctx)) {
		return
	}

	f.clock.Advance(2 * time.Hour)
	sweeper := NewSweeper(f.engine, SweeperConfig{Lease: time.Hour})
	fired, err := sweeper.SweepOnce(f.ctx)
	if asserter.NoError(err) {
		asserter.Equal(0, fired)
		asserter.Equal(states.ACTIVE, f.tokens(t, request.ID)["wait_timer"].Status)
	}

	if asserter.NoError(held.Delete(f.ctx)) {
		fired, err = sweeper.SweepOnce(f.ctx)
		if asserter.NoError(err) {
			asserter.Equal(1, fired)
		}
	}
}

func TestSweeper_FailingRequestDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	broken := f.deploy(t, "timer_failure.bpmn")
	healthy := f.deploy(t, "events.bpmn")

	bad, err := f.engine.Start(f.ctx, broken.ID, "start", nil, nil)
	if !asserter.NoError(err) {
		return
	}
	var good []string
	for i := 0; i < 5; i++ {
		request, err := f.engine.Start(f.ctx, healthy.ID, "start", nil, nil)
		if !asserter.NoError(err) {
			return
		}
		good = append(good, request.ID)
	}

	f.clock.Advance(2 * time.Hour)
	sweeper := NewSweeper(f.engine, SweeperConfig{Workers: 1})
	fired, err := sweeper.SweepOnce(f.ctx)
	if asserter.NoError(err) {
		asserter.Equal(len(good), fired)
	}

	for _, id := range good {
		asserter.Equal(states.CLOSED, f.tokens(t, id)["wait_timer"].Status)
	}

	reloaded, _, err := f.engine.GetRequest(f.ctx, bad.ID)
	if asserter.NoError(err) {
		asserter.Equal(states.REQUEST_ERROR, reloaded.Status)
		asserter.Contains(reloaded.ErrorMessage, "f2")
	}
	tokens := f.tokens(t, bad.ID)
	asserter.Equal(states.FAILING, tokens["wait_timer"].Status)
	asserter.NotContains(tokens, "follow_up")

	fired, err = sweeper.SweepOnce(f.ctx)
	if asserter.NoError(err) {
		asserter.Equal(0, fired)
	}
}

func TestEngine_FullOrderFlow(t *testing.T) {
	f := newFixture(t)
	asserter := assert.New(t)

	process := f.deploy(t, "events.bpmn")
	request, err := f.engine.Start(f.ctx, process.ID, "start", nil, nil)
	if !asserter.NoError(err) {
		return
	}

	f.clock.Advance(time.Hour)
	_, err = NewSweeper(f.engine, SweeperConfig{}).SweepOnce(f.ctx)
	asserter.NoError(err)

	_, err = f.engine.TriggerEvent(f.ctx, request.ID, "payment-received", nil)
	if !asserter.NoError(err) {
		return
	}
	ship := f.tokens(t, request.ID)["ship"]
	_, err = f.engine.CompleteTask(f.ctx, ship.ID, nil, nil)
	if asserter.NoError(err) {
		reloaded, tokens, err := f.engine.GetRequest(f.ctx, request.ID)
		if asserter.NoError(err) {
			asserter.Equal(states.REQUEST_COMPLETED, reloaded.Status)
			for _, tk := range tokens {
				asserter.NotEqual(states.ACTIVE, tk.Status)
			}
		}
	}

	// completed requests ignore further events
	caught, err := f.engine.TriggerEvent(f.ctx, request.ID, "payment-received", nil)
	if asserter.NoError(err) {
		asserter.Empty(caught)
	}
}
