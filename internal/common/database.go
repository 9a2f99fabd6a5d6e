package common

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database owns the gorm handle. Table models and queries belong to the
// package that embeds it
type Database struct {
	DB *gorm.DB
}

// zerologWriter routes gorm's logger through the global zerolog logger
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msg(fmt.Sprintf(format, args...))
}

// OpenDatabase opens the database for the given driver. An empty driver means sqlite.
// The caller is responsible for migrations
func OpenDatabase(driver string, dsn string) (Database, error) {

	var dialector gorm.Dialector
	switch driver {
	case "", DriverSqlite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return Database{}, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(zerologWriter{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return Database{}, fmt.Errorf("could not open %s database: %w", dialector.Name(), err)
	}

	if dialector.Name() == DriverSqlite {
		// sqlite serialises writers anyway; a single connection avoids "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			return Database{}, err
		}
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
			if err := db.Exec(pragma).Error; err != nil {
				return Database{}, fmt.Errorf("could not apply %q: %w", pragma, err)
			}
		}
	}
	log.Info().Msg(fmt.Sprintf("Database connected (%s)", dialector.Name()))

	return Database{DB: db}, nil
}

func (database *Database) Close() error {
	if database.DB == nil {
		return nil
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
