package config

import (
	"time"

	"github.com/go-ini/ini"
)

const (
	LockKindMemory = "memory"
	LockKindRedis  = "redis"
)

type LockConfig struct {
	Kind          string `json:"kind"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	Prefix        string `json:"prefix"`
	TTL           int    `json:"ttl"`
	Wait          int    `json:"wait"`
}

func NewDefaultLockConfig(c *ini.Section) LockConfig {
	return LockConfig{
		Kind:          c.Key("kind").In(LockKindMemory, []string{LockKindMemory, LockKindRedis}),
		RedisAddr:     c.Key("redis_addr").MustString("localhost:6379"),
		RedisPassword: c.Key("redis_password").String(),
		RedisDB:       c.Key("redis_db").MustInt(0),
		Prefix:        c.Key("prefix").MustString("pmflow:"),
		TTL:           c.Key("ttl").MustInt(30),
		Wait:          c.Key("wait").MustInt(10),
	}
}

func (c LockConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

func (c LockConfig) WaitDuration() time.Duration {
	return time.Duration(c.Wait) * time.Second
}
