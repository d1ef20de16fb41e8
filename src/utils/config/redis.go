package config

import (
	"time"

	"github.com/spf13/viper"
)

type Redis struct {
	// Settlement notifications are published only when enabled
	Enabled bool

	Port     uint16
	Host     string
	User     string
	Password string
	DB       int

	// TLS configuration
	ClientKey  string
	ClientCert string
	CaCert     string

	// Connection configuration
	MinIdleConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// Channel settlement notifications are published to
	Channel string

	// Num of concurrent publishes
	MaxWorkers int

	// Publish backoff configuration, 0 is no limit
	MaxElapsedTime time.Duration
	MaxInterval    time.Duration
}

func setRedisDefaults(v *viper.Viper) {
	v.SetDefault("Redis.Enabled", "false")
	v.SetDefault("Redis.Port", "6379")
	v.SetDefault("Redis.Host", "127.0.0.1")
	v.SetDefault("Redis.User", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", "0")
	v.SetDefault("Redis.MinIdleConns", "1")
	v.SetDefault("Redis.MaxIdleConns", "5")
	v.SetDefault("Redis.ConnMaxIdleTime", "5m")
	v.SetDefault("Redis.MaxOpenConns", "10")
	v.SetDefault("Redis.ConnMaxLifetime", "1h")
	v.SetDefault("Redis.Channel", "settlements")
	v.SetDefault("Redis.MaxWorkers", "4")
	v.SetDefault("Redis.MaxElapsedTime", "1m")
	v.SetDefault("Redis.MaxInterval", "5s")
}
