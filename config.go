package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	DatabaseURI        string `env:"DATABASE_URI,required"`
	InsecureSkipVerify bool   `env:"DB_INSECURE_SKIP_VERIFY" envDefault:"false"` // accept any server certificate
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" envDefault:"4"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

// loadConfig reads an optional .env file and then the process environment.
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
