package main

import (
	"context"
	"time"

	"blackjack-server/internal/config"
	"blackjack-server/pkg/db"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Instance()
	if cfg.PGDSN == "" {
		logrus.Fatal("missing pgDsn in configuration")
	}

	dbh, err := db.WaitFor(context.Background(), cfg.PGDSN, time.Second*10)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}
	defer dbh.Close()

	if err := db.Migrate(dbh, cfg.MigrationsPath); err != nil {
		logrus.WithError(err).Fatal("could not migrate database")
	}

	logrus.Info("database is up to date")
}
