package config

import (
	"os"

	"github.com/go-ini/ini"
)

const (
	EnvConfigFile     = "PMFLOW_CONFIG"
	DefaultConfigFile = "/etc/pmflow/config.ini"
)

var Config = NewConfiguration(ini.Empty())

type Configuration struct {
	API       APIConfig       `json:"api"`
	Database  DatabaseConfig  `json:"database"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Lock      LockConfig      `json:"lock"`
	Messaging MessagingConfig `json:"messaging"`
	LOG       LogConfig       `json:"log"`
}

// NewConfiguration reads every section of f, falling back to defaults for
// missing keys.
func NewConfiguration(f *ini.File) Configuration {
	return Configuration{
		API:       NewDefaultAPIConfig(f.Section("api")),
		Database:  NewDefaultDatabaseConfig(f.Section("db")),
		Scheduler: NewDefaultSchedulerConfig(f.Section("scheduler")),
		Lock:      NewDefaultLockConfig(f.Section("lock")),
		Messaging: NewMessagingConfig(f.Section("mq")),
		LOG:       NewDefaultLogConfig(f.Section("log")),
	}
}

// ConfigFile resolves the ini file path: explicit argument, then
// PMFLOW_CONFIG, then the default location.
func ConfigFile(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		return env
	}
	return DefaultConfigFile
}

func (c *Configuration) Initialize(configFile string) error {
	path := ConfigFile(configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		*c = NewConfiguration(ini.Empty())
		return nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return err
	}
	*c = NewConfiguration(f)
	return nil
}

func Initialize(configFile string) error {
	return Config.Initialize(configFile)
}
