package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // needed
	_ "github.com/lib/pq"                                 // needed
	"github.com/sirupsen/logrus"
)

// Open opens the database and makes sure it can be reached
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	dbh, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := dbh.PingContext(ctx); err != nil {
		_ = dbh.Close()
		return nil, err
	}

	return dbh, nil
}

// WaitFor keeps trying to open the database until it's reachable or the timeout expires
func WaitFor(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Millisecond * 500)
	defer ticker.Stop()

	for {
		dbh, err := Open(ctx, dsn)
		if err == nil {
			return dbh, nil
		}

		logrus.WithError(err).Debug("database not ready")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("could not connect to database: %w", err)
		case <-ticker.C:
		}
	}
}

// Migrate runs the migrations found in migrationsPath
func Migrate(dbh *sql.DB, migrationsPath string) error {
	logrus.WithField("migrationsPath", migrationsPath).Info("running migrations")
	driver, err := postgres.WithInstance(dbh, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Scanner is an interface that sql should've provided
type Scanner interface {
	Scan(...interface{}) error
}
