package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ValidatorOptions contains options for configuration validation
type ValidatorOptions struct {
	VerifyConnectivity bool // Check database/Redis/NATS connectivity
	Timeout            time.Duration
}

// DefaultValidatorOptions returns default validator options for startup
func DefaultValidatorOptions() ValidatorOptions {
	return ValidatorOptions{
		VerifyConnectivity: true,
		Timeout:            5 * time.Second,
	}
}

// Validator handles configuration validation at startup
type Validator struct {
	config  *Config
	options ValidatorOptions
}

// NewValidator creates a new configuration validator
func NewValidator(config *Config, options ValidatorOptions) *Validator {
	return &Validator{
		config:  config,
		options: options,
	}
}

// ValidateStartup checks that the configured collaborators are reachable.
// It is called before the first generation runs.
func (v *Validator) ValidateStartup(ctx context.Context) error {
	log.Info().Msg("Validating configuration...")

	if err := v.config.Validate(); err != nil {
		return err
	}

	if !v.config.UsesPostgres() {
		if err := v.checkMatchFiles(); err != nil {
			return fmt.Errorf("match database check failed: %w", err)
		}
	}

	if v.options.VerifyConnectivity {
		if v.config.UsesPostgres() {
			if err := v.checkDatabaseConnectivity(ctx); err != nil {
				return fmt.Errorf("database connectivity check failed: %w", err)
			}
		}
		if v.config.Redis.Enabled {
			if err := v.checkRedisConnectivity(ctx); err != nil {
				return fmt.Errorf("redis connectivity check failed: %w", err)
			}
		}
		if v.config.NATS.Enabled {
			if err := v.checkNATSConnectivity(); err != nil {
				return fmt.Errorf("nats connectivity check failed: %w", err)
			}
		}
	}

	log.Info().Msg("Configuration validation completed successfully")
	return nil
}

// checkMatchFiles verifies that the CSV file or directory exists
func (v *Validator) checkMatchFiles() error {
	info, err := os.Stat(v.config.Database)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w\n\nRun 'ingest' first or point 'database' at a CSV file, a directory of CSV files or a postgres:// URL", v.config.Database, err)
	}
	log.Info().
		Str("path", v.config.Database).
		Bool("directory", info.IsDir()).
		Msg("Match files check passed")
	return nil
}

// checkDatabaseConnectivity tests database connection with timeout
func (v *Validator) checkDatabaseConnectivity(ctx context.Context) error {
	log.Info().Msg("Checking database connectivity...")

	connCtx, cancel := context.WithTimeout(ctx, v.options.Timeout)
	defer cancel()

	pool, err := pgxpool.New(connCtx, v.config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database connection pool: %w\n\nPlease check:\n  - Database is running\n  - Connection details are correct\n  - Network connectivity is available", err)
	}
	defer pool.Close()

	if err := pool.Ping(connCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w\n\nPlease check:\n  - Database is running and accepting connections\n  - Credentials are correct\n  - Network connectivity is available", err)
	}

	var dbName string
	if err := pool.QueryRow(connCtx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("failed to verify database: %w", err)
	}

	log.Info().
		Str("database", dbName).
		Msg("Database connectivity check passed")

	return nil
}

// checkRedisConnectivity tests Redis connection with timeout
func (v *Validator) checkRedisConnectivity(ctx context.Context) error {
	log.Info().Msg("Checking Redis connectivity...")

	connCtx, cancel := context.WithTimeout(ctx, v.options.Timeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:     v.config.Redis.GetRedisAddr(),
		Password: v.config.Redis.Password,
		DB:       v.config.Redis.DB,
	})
	defer client.Close()

	if err := client.Ping(connCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w\n\nPlease check:\n  - Redis is running and accepting connections\n  - Connection details are correct\n  - Network connectivity is available", err)
	}

	log.Info().
		Str("addr", v.config.Redis.GetRedisAddr()).
		Int("db", v.config.Redis.DB).
		Msg("Redis connectivity check passed")

	return nil
}

// checkNATSConnectivity tests the NATS connection with timeout
func (v *Validator) checkNATSConnectivity() error {
	log.Info().Msg("Checking NATS connectivity...")

	nc, err := nats.Connect(v.config.NATS.URL, nats.Timeout(v.options.Timeout))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w\n\nPlease check:\n  - NATS is running\n  - The URL is correct", err)
	}
	defer nc.Close()

	if err := nc.FlushTimeout(v.options.Timeout); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	log.Info().
		Str("url", v.config.NATS.URL).
		Msg("NATS connectivity check passed")

	return nil
}
