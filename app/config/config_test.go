package config

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitialize_Defaults(t *testing.T) {
	asserter := assert.New(t)

	c := Configuration{}
	if asserter.NoError(c.Initialize(path.Join(t.TempDir(), "missing.ini"))) {
		asserter.Equal(8791, c.API.Port)
		asserter.False(c.API.EnforcePermissions)
		asserter.Equal(LockKindMemory, c.Lock.Kind)
		asserter.Equal(time.Second, c.Scheduler.IntervalDuration())
		asserter.Equal("", c.LOG.DirPath)
		asserter.False(c.Messaging.Enabled)
	}
}

func TestInitialize_File(t *testing.T) {
	asserter := assert.New(t)

	file := path.Join(t.TempDir(), "config.ini")
	content := `
[api]
port = 9000
enforce_permissions = true

[db]
connection = sqlite:///tmp/pm.db
pool_size = 3

[scheduler]
interval = 250
workers = 2

[lock]
kind = redis
redis_addr = redis:6379
wait = 2

[mq]
enabled = true
exchange = events
`
	if !asserter.NoError(os.WriteFile(file, []byte(content), 0600)) {
		return
	}

	t.Setenv(EnvConfigFile, file)
	c := Configuration{}
	if asserter.NoError(c.Initialize("")) {
		asserter.Equal(9000, c.API.Port)
		asserter.True(c.API.EnforcePermissions)
		asserter.Equal("sqlite:///tmp/pm.db", c.Database.Connection)
		asserter.Equal(3, c.Database.PoolSize)
		asserter.Equal(250*time.Millisecond, c.Scheduler.IntervalDuration())
		asserter.Equal(2, c.Scheduler.Workers)
		asserter.Equal(LockKindRedis, c.Lock.Kind)
		asserter.Equal("redis:6379", c.Lock.RedisAddr)
		asserter.Equal(2*time.Second, c.Lock.WaitDuration())
		asserter.True(c.Messaging.Enabled)
		asserter.Equal("events", c.Messaging.Exchange)
	}
}

func TestLockKind_Unknown(t *testing.T) {
	asserter := assert.New(t)

	file := path.Join(t.TempDir(), "config.ini")
	if asserter.NoError(os.WriteFile(file, []byte("[lock]\nkind = etcd\n"), 0600)) {
		c := Configuration{}
		if asserter.NoError(c.Initialize(file)) {
			asserter.Equal(LockKindMemory, c.Lock.Kind)
		}
	}
}
