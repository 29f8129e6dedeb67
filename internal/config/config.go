// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "DHCP6NOTIFY"

type Grpc struct {
	Address string `mapstructure:"address"`
	Port    string `mapstructure:"port"`
}

type Log struct {
	Path       string `mapstructure:"path"`
	Name       string `mapstructure:"name"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Debug      bool   `mapstructure:"debug"`
}

type Metrics struct {
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

type Document struct {
	MaxSize int `mapstructure:"max_size"`
}

// Snapshot names the sources the daemon reads the client state from. File
// takes precedence over Pcap.
type Snapshot struct {
	File string `mapstructure:"file"`
	Pcap string `mapstructure:"pcap"`
}

type Global struct {
	Interface string   `mapstructure:"interface"`
	Grpc      Grpc     `mapstructure:"grpc"`
	Log       Log      `mapstructure:"log"`
	Metrics   Metrics  `mapstructure:"metrics"`
	Document  Document `mapstructure:"document"`
	Snapshot  Snapshot `mapstructure:"snapshot"`
}

type Config struct {
	Global Global `mapstructure:"global"`
}

var defaults = map[string]any{
	"global.interface":         "wan",
	"global.grpc.address":      "127.0.0.1",
	"global.grpc.port":         "50061",
	"global.log.path":          "/var/log/dhcp6notify/",
	"global.log.name":          "dhcp6notify.log",
	"global.log.max_size":      10,
	"global.log.max_backups":   3,
	"global.log.max_age":       28,
	"global.log.compress":      false,
	"global.log.debug":         false,
	"global.metrics.address":   "",
	"global.metrics.path":      "/metrics",
	"global.document.max_size": 0,
	"global.snapshot.file":     "",
	"global.snapshot.pcap":     "",
}

// ReadConfigFile loads a YAML configuration. Every key can be overridden from
// the environment, e.g. DHCP6NOTIFY_GLOBAL_GRPC_PORT.
func ReadConfigFile(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	ext := filepath.Ext(configFile)
	v.SetConfigFile(configFile)
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	if ext == "" {
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// ObjectName is the name notifications are published under.
func (g *Global) ObjectName() string {
	return "odhcp6c." + g.Interface
}

// LogFile is the full path of the log file.
func (l *Log) LogFile() string {
	return filepath.Join(l.Path, l.Name)
}
