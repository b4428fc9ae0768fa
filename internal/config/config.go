// internal/config/config.go
//
// Server configuration from environment variables (optionally seeded from a
// .env file). Every setting has a development default; Load only fails on
// values that are present but malformed.
//
// Environment variables:
//   PORT=5175                       HTTP listen port
//   LOG_LEVEL=info                  zerolog level
//   LOG_FORMAT=json                 "console" for human-readable logs
//   STORE_DRIVER=sqlite             sqlite | postgres | memory
//   SQLITE_PATH=./data/app.db
//   DATABASE_URL=                   required when STORE_DRIVER=postgres
//   JWT_SECRET=dev_secret_change_me
//   JWT_EXPIRES_DAYS=14
//   COOKIE_NAME=lemon_token
//   CLIENT_ORIGIN=http://localhost:5173
//   NODE_ENV=                       "production" enables secure cookies
//   LEVELS_FILE=, QUIZ_FILE=        override the embedded data files
//   FLAVOR_URL=                     remote text generator (flavor + quiz)
//   FLAVOR_TIMEOUT=5s
//   DAILY_SALT=local_dev_salt
//   SESSION_TTL=30m                 idle game sessions are dropped after this
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the resolved server configuration.
type Config struct {
	Port          string
	LogLevel      string
	LogFormat     string
	StoreDriver   string
	SQLitePath    string
	DatabaseURL   string
	JWTSecret     string
	JWTExpiry     time.Duration
	CookieName    string
	ClientOrigin  string
	Production    bool
	LevelsFile    string
	QuizFile      string
	FlavorURL     string
	FlavorTimeout time.Duration
	DailySalt     string
	SessionTTL    time.Duration
}

// LoadDotEnv loads path (default ".env") into the environment. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	c := Config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "json")),
		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/app.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		CookieName:   getEnv("COOKIE_NAME", "lemon_token"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   os.Getenv("NODE_ENV") == "production",
		LevelsFile:   os.Getenv("LEVELS_FILE"),
		QuizFile:     os.Getenv("QUIZ_FILE"),
		FlavorURL:    os.Getenv("FLAVOR_URL"),
		DailySalt:    getEnv("DAILY_SALT", "local_dev_salt"),
	}

	var errs []error
	days, err := getInt("JWT_EXPIRES_DAYS", 14)
	if err != nil {
		errs = append(errs, err)
	}
	c.JWTExpiry = time.Duration(days) * 24 * time.Hour
	if c.FlavorTimeout, err = getDuration("FLAVOR_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if c.SessionTTL, err = getDuration("SESSION_TTL", 30*time.Minute); err != nil {
		errs = append(errs, err)
	}

	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("%s: want a positive integer, got %q", k, v)
	}
	return n, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("%s: want a positive duration, got %q", k, v)
	}
	return d, nil
}
