package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSqlite   = "sqlite"
)

type Database struct {
	// postgres or sqlite
	Driver string

	Port     uint16
	Host     string
	User     string
	Password string
	Name     string
	SslMode  string

	// Used only by the sqlite driver. Empty path means an in-memory database.
	SqlitePath string

	PingTimeout time.Duration

	// Connection pool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	// Postgres migrations are run with this user. Empty means migrations are skipped.
	MigrationUser     string
	MigrationPassword string
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("Database.Driver", DatabaseDriverSqlite)
	v.SetDefault("Database.Port", "5432")
	v.SetDefault("Database.Host", "127.0.0.1")
	v.SetDefault("Database.User", "postgres")
	v.SetDefault("Database.Password", "postgres")
	v.SetDefault("Database.Name", "licensing")
	v.SetDefault("Database.SslMode", "disable")
	v.SetDefault("Database.SqlitePath", "")
	v.SetDefault("Database.PingTimeout", "15s")
	v.SetDefault("Database.MaxOpenConns", "10")
	v.SetDefault("Database.MaxIdleConns", "2")
	v.SetDefault("Database.ConnMaxIdleTime", "5m")
	v.SetDefault("Database.ConnMaxLifetime", "30m")
	v.SetDefault("Database.MigrationUser", "postgres")
	v.SetDefault("Database.MigrationPassword", "postgres")
}
