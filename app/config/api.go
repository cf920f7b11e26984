package config

import "github.com/go-ini/ini"

type APIConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	EnforcePermissions bool   `json:"enforce_permissions"`
}

func NewDefaultAPIConfig(c *ini.Section) APIConfig {
	return APIConfig{
		Host:               c.Key("host").MustString("0.0.0.0"),
		Port:               c.Key("port").MustInt(8791),
		EnforcePermissions: c.Key("enforce_permissions").MustBool(false),
	}
}
