package main

import (
	"fmt"

	"pmflow/app/config"
	"pmflow/app/db"
	"pmflow/app/metrics"
	"pmflow/app/notify"
	"pmflow/app/workflow"
	"pmflow/pkg/contextx"
	"pmflow/pkg/lockx"
	"pmflow/pkg/log"

	"github.com/redis/go-redis/v9"
)

// runtime holds what every command shares once the config is loaded.
type runtime struct {
	engine    *workflow.Engine
	metrics   *metrics.Recorder
	publisher *notify.Publisher
	redis     redis.UniversalClient
}

func openDatabase() error {
	return db.Init(&db.Config{
		Connection:  config.Config.Database.Connection,
		Debug:       config.Config.Database.Debug,
		PoolSize:    config.Config.Database.PoolSize,
		IdleTimeout: config.Config.Database.IdleTimeout,
	})
}

func newLocker(rt *runtime) lockx.Locker {
	cfg := config.Config.Lock
	if cfg.Kind == config.LockKindRedis {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return lockx.NewRedisLocker(rt.redis, cfg.Prefix, cfg.TTLDuration(), cfg.WaitDuration())
	}
	return lockx.NewMemoryLocker(cfg.WaitDuration())
}

// newRuntime opens the database and builds the engine with its listeners.
func newRuntime() (*runtime, error) {
	if err := openDatabase(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rt := &runtime{metrics: metrics.NewRecorder()}
	listeners := []workflow.Listener{workflow.LogListener{}, rt.metrics}

	mq := config.Config.Messaging
	if mq.Enabled {
		publisher, err := notify.Dial(notify.Config{URL: mq.URL, Exchange: mq.Exchange, RoutingKey: mq.RoutingKey})
		if err != nil {
			return nil, fmt.Errorf("connect message queue: %w", err)
		}
		rt.publisher = publisher
		listeners = append(listeners, publisher)
	}

	rt.engine = workflow.NewEngine(db.GetDBConnection(), newLocker(rt), workflow.WithListeners(listeners...))
	return rt, nil
}

func (rt *runtime) sweeper() *workflow.Sweeper {
	cfg := config.Config.Scheduler
	return workflow.NewSweeper(rt.engine, workflow.SweeperConfig{
		Interval: cfg.IntervalDuration(),
		Workers:  cfg.Workers,
		Lease:    cfg.LeaseDuration(),
	})
}

func (rt *runtime) Close() {
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			log.Warnf(nil, "close message queue failed, error: %s", err.Error())
		}
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if err := db.Close(db.GetDBConnection()); err != nil {
		log.Warnf(nil, "close database failed, error: %s", err.Error())
	}
}

func adminContext() *contextx.Context {
	ctx := contextx.NewAdminContext()
	ctx.Set(contextx.RequestIDKey, "cli")
	return ctx
}
