package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pmflow/app/objects"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"golang.org/x/sync/errgroup"
)

const sweepLockName = "timer-sweep"

type SweeperConfig struct {
	Interval time.Duration
	Workers  int
	// a sweep lock older than Lease is assumed abandoned
	Lease time.Duration
}

// Sweeper fires due timer catch events.
type Sweeper struct {
	engine *Engine
	cfg    SweeperConfig
}

func NewSweeper(engine *Engine, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}
	return &Sweeper{engine: engine, cfg: cfg}
}

// SweepOnce fires every due timer and returns how many fired. Requests are
// handled in parallel, each under its own lock, and a failure in one never
// stops the others. A request whose timer can't advance is moved to ERROR.
// A sweep already running in another process makes this a no-op.
func (s *Sweeper) SweepOnce(ctx *contextx.Context) (int, error) {
	ctx = s.engine.Bind(ctx)
	var fired int64

	_, err := objects.WithNamedLock(ctx, sweepLockName, s.cfg.Lease, func() error {
		due, err := objects.QueryDueTokens(ctx, s.engine.now())
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		var order []string
		byRequest := map[string][]string{}
		for _, tk := range due {
			if _, ok := byRequest[tk.ProcessRequestID]; !ok {
				order = append(order, tk.ProcessRequestID)
			}
			byRequest[tk.ProcessRequestID] = append(byRequest[tk.ProcessRequestID], tk.ID)
		}

		var (
			g    errgroup.Group
			mu   sync.Mutex
			errs []error
		)
		g.SetLimit(s.cfg.Workers)
		for _, requestID := range order {
			requestID := requestID
			tokenIDs := byRequest[requestID]
			g.Go(func() error {
				n, err := s.engine.FireTimers(ctx, requestID, tokenIDs)
				if err == nil {
					atomic.AddInt64(&fired, int64(n))
					return nil
				}
				log.Errorf(ctx, "fire timers of request %s failed: %s", requestID, err.Error())
				if objects.IsKind(err, objects.AdvancementFailed) {
					// park the request so its timers stop coming due
					if err = s.engine.failTimers(ctx, requestID, tokenIDs, err); err == nil {
						return nil
					}
				}
				mu.Lock()
				errs = append(errs, fmt.Errorf("request %s: %w", requestID, err))
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		return errors.Join(errs...)
	})
	return int(fired), err
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	base := contextx.NewContext().WithContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.SweepOnce(base)
			if err != nil {
				log.Errorf(base, "timer sweep failed: %s", err.Error())
				continue
			}
			if n > 0 {
				log.Infof(base, "timer sweep fired %d timers", n)
			}
		}
	}
}
