package config

import (
	"errors"
	"os"
	"time"

	"blackjack-server/internal/util"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config provides configuration for the blackjack server
type Config struct {
	loaded         bool
	PGDSN          string `yaml:"pgDsn" envconfig:"pg_dsn"`
	MigrationsPath string `yaml:"migrationsPath" envconfig:"migrations_path"`
	Redis          struct {
		Addr        string        `yaml:"addr"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		SnapshotTTL time.Duration `yaml:"snapshotTTL" envconfig:"snapshot_ttl"`
	} `yaml:"redis"`
	JWT struct {
		PublicKey  string `yaml:"publicKey" envconfig:"public_key"`
		PrivateKey string `yaml:"privateKey" envconfig:"private_key"`
	} `yaml:"jwt"`
	Log struct {
		Level             string `yaml:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	} `yaml:"log"`
	Game struct {
		MaxTables      int           `yaml:"maxTables" envconfig:"max_tables"`
		MaxSeats       int           `yaml:"maxSeats" envconfig:"max_seats"`
		InitialBalance int           `yaml:"initialBalance" envconfig:"initial_balance"`
		DealerDelay    time.Duration `yaml:"dealerDelay" envconfig:"dealer_delay"`
		ResultsDelay   time.Duration `yaml:"resultsDelay" envconfig:"results_delay"`
	} `yaml:"game"`
}

var config Config

// DefaultConfig returns the configuration used when nothing else is set
func DefaultConfig() Config {
	cfg := Config{
		MigrationsPath: "file://sql",
	}

	cfg.Redis.SnapshotTTL = time.Hour
	cfg.JWT.PublicKey = "public.pem"
	cfg.Log.Level = "info"
	cfg.Game.MaxTables = 4
	cfg.Game.MaxSeats = 4
	cfg.Game.InitialBalance = 100
	cfg.Game.DealerDelay = time.Second
	cfg.Game.ResultsDelay = time.Second * 5

	return cfg
}

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration
// A missing config file is not an error, the defaults are used instead.
func Load() error {
	cfg := DefaultConfig()

	configFile := util.Getenv("BJ_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if file != nil {
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return err
		}
	}

	if err := envconfig.Process("bj", &cfg); err != nil {
		return err
	}

	cfg.loaded = true
	config = cfg
	return nil
}
