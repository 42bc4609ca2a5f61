package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

const (
	maxRetries = 10
	retryDelay = 2 * time.Second
)

// NewPostgresDB retries until the database accepts connections or ctx ends.
func NewPostgresDB(ctx context.Context, cfg Config, log logrus.FieldLogger) (*sqlx.DB, error) {
	var err error
	for i := 1; i <= maxRetries; i++ {
		log.WithFields(logrus.Fields{"host": cfg.Host, "attempt": i}).Info("Connecting to database")

		var db *sqlx.DB
		db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(25)
			db.SetConnMaxLifetime(5 * time.Minute)

			log.Info("Database connected")
			return db, nil
		}

		log.WithError(err).Warn("Database not ready yet")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}
