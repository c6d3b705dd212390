// Package config loads settings from the environment, optionally seeded
// from .env files in the working directory.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultEnvFiles are read in order; variables already set in the process
// environment win.
var DefaultEnvFiles = []string{".env", ".env.local"}

type DatabaseOptions struct {
	Host           string `env:"DB_HOST" envDefault:"postgres"`
	Port           int    `env:"DB_PORT" envDefault:"5432"`
	Name           string `env:"DB_NAME" envDefault:"boe_visualizer"`
	User           string `env:"DB_USER" envDefault:"boe_user"`
	Password       string `env:"DB_PASSWORD" envDefault:"boe_password"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	ConnectRetries int    `env:"DB_CONNECT_RETRIES" envDefault:"10"`
}

// DSN returns a lib/pq connection URL.
func (d DatabaseOptions) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type Config struct {
	Database  DatabaseOptions
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadEnv loads whichever of files exist and reports how many did.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads envFiles and then parses the environment.
func Load(envFiles []string) (*Config, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, errors.Wrap(err, "load env files")
	}
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return nil, errors.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return c, nil
}

func (c *Config) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger builds a logger writing to out.
func (c *Config) Logger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(c.LogrusLogLevel())
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
