package model

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp-contracts/licensing/src/utils/config"
	l "github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/model/sql_migrations"

	"github.com/glebarez/sqlite"
	"github.com/rs/xid"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Tables created by AutoMigrate for the sqlite driver, in dependency order
var MigrateModels = []interface{}{
	&User{},
	&Dataset{},
	&Transaction{},
	&License{},
	&RoyaltyConfig{},
}

func newLogger() logger.Interface {
	return logger.New(l.NewSublogger("db"),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Error,           // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,                  // Disable color
		},
	)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: newLogger(),

		// Unique violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
	}
}

func connectPostgres(ctx context.Context, dbConfig *config.Database, username, password, applicationName string) (self *gorm.DB, err error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=licensing/%s",
		dbConfig.Host,
		dbConfig.Port,
		username,
		password,
		dbConfig.Name,
		dbConfig.SslMode,
		applicationName,
	)

	self, err = gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxIdleTime(dbConfig.ConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	err = Ping(ctx, dbConfig, self)
	return
}

func connectSqlite(ctx context.Context, dbConfig *config.Database) (self *gorm.DB, err error) {
	// Every in-memory database gets its own name, so connections from one pool share it
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&", xid.New().String())
	if dbConfig.SqlitePath != "" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&", dbConfig.SqlitePath)
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	self, err = gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}

	// Single writer. Transactions are serialized by the pool, connection is never recycled
	// because the in-memory database lives only as long as a connection to it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	err = Ping(ctx, dbConfig, self)
	if err != nil {
		return
	}

	err = self.WithContext(ctx).AutoMigrate(MigrateModels...)
	return
}

// Opens the ledger database and brings its schema up to date
func NewConnection(ctx context.Context, conf *config.Config, applicationName string) (self *gorm.DB, err error) {
	switch conf.Database.Driver {
	case "", config.DatabaseDriverSqlite:
		return connectSqlite(ctx, &conf.Database)
	case config.DatabaseDriverPostgres:
		err = Migrate(ctx, conf)
		if err != nil {
			return
		}
		return connectPostgres(ctx, &conf.Database, conf.Database.User, conf.Database.Password, applicationName)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", conf.Database.Driver)
}

func Migrate(ctx context.Context, conf *config.Config) (err error) {
	log := l.NewSublogger("db-migrate")

	if conf.Database.Driver != config.DatabaseDriverPostgres {
		log.Debug("Schema of this driver is managed by AutoMigrate")
		return
	}

	if conf.Database.MigrationUser == "" || conf.Database.MigrationPassword == "" {
		log.Info("Migration user not set, skipping migrations")
		return
	}

	migrations := &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(sql_migrations.FS),
	}

	// Use special migration user
	self, err := connectPostgres(ctx, &conf.Database, conf.Database.MigrationUser, conf.Database.MigrationPassword, "migration")
	if err != nil {
		return
	}

	db, err := self.DB()
	if err != nil {
		return
	}
	defer db.Close()

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return
	}

	log.WithField("num", n).Info("Applied migrations")

	return
}

func Ping(ctx context.Context, dbConfig *config.Database, db *gorm.DB) (err error) {
	if dbConfig.PingTimeout < 0 {
		// Ping disabled
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbConfig.PingTimeout)
	defer cancel()

	return sqlDB.PingContext(dbCtx)
}
