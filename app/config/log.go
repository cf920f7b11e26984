package config

import (
	"github.com/go-ini/ini"
)

type LogConfig struct {
	Format          string `json:"format"`
	TimestampFormat string `json:"timestamp_format"`
	DirPath         string `json:"dir_path"`
	Level           string `json:"level"`
}

// NewDefaultLogConfig leaves DirPath empty unless configured, which keeps
// output on stderr.
func NewDefaultLogConfig(c *ini.Section) LogConfig {
	return LogConfig{
		Format:          "{{.timestamp}} {{.pid}} [{{.name}}] [{{.levelname}}] [{{.requestId}} {{.process}}] {{.message}}",
		TimestampFormat: "2006-01-02 15:04:05.000",
		DirPath:         c.Key("dir_path").String(),
		Level:           c.Key("level").MustString("info"),
	}
}
