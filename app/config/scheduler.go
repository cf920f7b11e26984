package config

import (
	"time"

	"github.com/go-ini/ini"
)

type SchedulerConfig struct {
	Interval  int `json:"interval"`
	Workers   int `json:"workers"`
	LockLease int `json:"lock_lease"`
}

func NewDefaultSchedulerConfig(c *ini.Section) SchedulerConfig {
	return SchedulerConfig{
		Interval:  c.Key("interval").MustInt(1000),
		Workers:   c.Key("workers").MustInt(4),
		LockLease: c.Key("lock_lease").MustInt(60),
	}
}

func (c SchedulerConfig) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

func (c SchedulerConfig) LeaseDuration() time.Duration {
	return time.Duration(c.LockLease) * time.Second
}
