package config

import (
	"context"
	"fmt"
	"time"
)

// PostgresConfig defines the configuration for the closed-candle archive.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// SSM parameter names consulted when the environment is "prod".
	HostParam     string `mapstructure:"host_param"`
	UserParam     string `mapstructure:"user_param"`
	PasswordParam string `mapstructure:"password_param"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds a lib/pq style connection string. In "prod" the host, user and
// password are resolved from AWS SSM Parameter Store when their *_param keys
// are set; a lookup failure falls back to the static value.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password

	if env == "prod" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		host = paramOr(ctx, cfg.HostParam, host)
		user = paramOr(ctx, cfg.UserParam, user)
		password = paramOr(ctx, cfg.PasswordParam, password)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, cfg.DBName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// AdminDSN is DSN pointed at the maintenance "postgres" database, used to
// create the archive database before connecting to it.
func (cfg *PostgresConfig) AdminDSN(env string) string {
	admin := *cfg
	admin.DBName = "postgres"
	return admin.DSN(env)
}

func paramOr(ctx context.Context, name, fallback string) string {
	if name == "" {
		return fallback
	}
	v, err := ParameterStoreValue(ctx, name, true)
	if err != nil || v == "" {
		return fallback
	}
	return v
}
