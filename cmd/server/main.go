package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blackjack-server/internal/config"
	"blackjack-server/internal/jwt"
	"blackjack-server/internal/mux"
	"blackjack-server/pkg/db"
	"blackjack-server/pkg/room"
	"blackjack-server/pkg/store"
	"blackjack-server/pkg/store/postgres"
	"blackjack-server/pkg/store/redisstore"

	"github.com/coder/quartz"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const readTimeout = time.Second * 5
const writeTimeout = time.Second * 10
const shutdownTimeout = time.Second * 15

// Version is the server version
var Version = "v0.0.0-dev"

var addr = flag.String("addr", ":5000", "the listen address")

func main() {
	flag.Parse()
	setupLogger()

	// fail fast
	if err := jwt.LoadKeys(); err != nil {
		logrus.WithError(err).Fatal("could not load JWT keys")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := openStore(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("could not open store")
	}
	defer closeStore()

	cfg := config.Instance().Game
	pitBoss := room.NewPitBoss(room.Options{
		MaxTables:      cfg.MaxTables,
		MaxSeats:       cfg.MaxSeats,
		InitialBalance: cfg.InitialBalance,
		DealerDelay:    cfg.DealerDelay,
		ResultsDelay:   cfg.ResultsDelay,
		Clock:          quartz.NewReal(),
		Store:          s,
	})

	c := cors.New(cors.Options{
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		ExposedHeaders: []string{"Blackjack-PlayerID"},
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      loggingHandler(c.Handler(mux.NewMux(Version, pitBoss))),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", srv.Addr).WithField("version", Version).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// close the tables first so every client is told and every write lands
		return errors.Join(pitBoss.Shutdown(shutdownCtx), srv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// openStore returns Postgres if a DSN is configured, memory otherwise, mirrored to Redis if an address is configured
func openStore(ctx context.Context) (store.Store, func(), error) {
	cfg := config.Instance()
	closers := []func(){}
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	var primary store.Store
	if cfg.PGDSN != "" {
		dbh, err := db.Open(ctx, cfg.PGDSN)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = dbh.Close() })

		if err := db.Migrate(dbh, cfg.MigrationsPath); err != nil {
			closeAll()
			return nil, func() {}, err
		}

		primary = postgres.New(dbh)
		logrus.Info("using postgres store")
	} else {
		primary = store.NewMemory()
		logrus.Warn("no pgDsn configured, balances are kept in memory")
	}

	if cfg.Redis.Addr == "" {
		return primary, closeAll, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, func() { _ = rdb.Close() })

	mirror := redisstore.New(rdb, redisstore.Options{SnapshotTTL: cfg.Redis.SnapshotTTL})
	if err := mirror.Ping(ctx); err != nil {
		closeAll()
		return nil, func() {}, err
	}

	logrus.WithField("addr", cfg.Redis.Addr).Info("mirroring tables to redis")
	return &store.Multi{Store: primary, Mirrors: []store.Mirror{mirror}}, closeAll, nil
}

func loggingHandler(next http.Handler) http.Handler {
	if config.Instance().Log.DisableAccessLogs {
		return next
	}

	return handlers.CombinedLoggingHandler(os.Stdout, next)
}

func setupLogger() {
	if lvl := config.Instance().Log.Level; lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse level")
		}

		logrus.SetLevel(level)
	}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
