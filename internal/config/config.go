package config

import (
	"math/big"
	"os"
	"strings"

	"collatz-cache/internal/cache"
	"collatz-cache/pkg/logging/logging"

	"github.com/jmgilman/go/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable read by Load.
const Prefix = "COLLATZ"

type Config struct {
	RangeFrom uint64 `envconfig:"RANGE_FROM" default:"2"`
	RangeTo   uint64 `envconfig:"RANGE_TO" default:"100000"`

	// SingleStart overrides SingleExponent with an explicit decimal start.
	SingleExponent uint   `envconfig:"SINGLE_EXPONENT" default:"10000"`
	SingleStart    string `envconfig:"SINGLE_START"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"disk"`
	StoreDir     string `envconfig:"STORE_DIR" default:"collatz"`
	StorePrefix  string `envconfig:"STORE_PREFIX" default:"collatz"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	// HTTPAddr enables the status server when non-empty.
	HTTPAddr      string `envconfig:"HTTP_ADDR"`
	ProgressEvery int    `envconfig:"PROGRESS_EVERY" default:"1000"`

	Env      string `envconfig:"ENV"`
	LogLevel string `envconfig:"LOG_LEVEL"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set
// take precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "failed to load .env")
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "error processing environment configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.RangeFrom == 0 {
		return errors.New(errors.CodeInvalidConfig, "RANGE_FROM must be at least 1")
	}
	if c.RangeFrom > c.RangeTo {
		return errors.Newf(errors.CodeInvalidConfig, "RANGE_FROM %d is after RANGE_TO %d", c.RangeFrom, c.RangeTo)
	}
	if c.SingleStart == "" && c.SingleExponent == 0 {
		return errors.New(errors.CodeInvalidConfig, "SINGLE_EXPONENT must be at least 1")
	}
	if c.SingleStart != "" {
		if _, err := c.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Start returns the single-shot starting number: SingleStart when set,
// otherwise 2^SingleExponent - 1.
func (c Config) Start() (*big.Int, error) {
	if s := strings.TrimSpace(c.SingleStart); s != "" {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok || n.Sign() <= 0 {
			return nil, errors.New(errors.CodeInvalidConfig, "SINGLE_START must be a positive decimal integer")
		}
		return n, nil
	}

	n := new(big.Int).Lsh(big.NewInt(1), c.SingleExponent)
	return n.Sub(n, big.NewInt(1)), nil
}

// Store returns the store factory settings.
func (c Config) Store() cache.Config {
	return cache.Config{
		Backend: c.StoreBackend,
		Dir:     c.StoreDir,
		Prefix:  c.StorePrefix,
		S3: cache.S3Config{
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			UseSSL:    c.S3UseSSL,
		},
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{Env: c.Env, Level: c.LogLevel}
}
