package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Has reports whether a violation was recorded for field
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateEvolution()...)
	errors = append(errors, c.validateOperators()...)

	if c.Redis.Enabled {
		errors = append(errors, c.validateRedis()...)
	}
	if c.NATS.Enabled {
		errors = append(errors, c.validateNATS()...)
	}
	errors = append(errors, c.validateDownload()...)
	if c.Monitoring.EnableMetrics {
		errors = append(errors, c.validateMonitoring()...)
	}
	if c.Alerts.Enabled {
		errors = append(errors, c.validateAlerts()...)
	}

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.LogLevel == "" {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: "Log level is required (debug, info, warn, error)",
		})
	}

	if c.App.LogFormat != "" && c.App.LogFormat != "json" && c.App.LogFormat != "console" {
		errors = append(errors, ValidationError{
			Field:   "app.log_format",
			Message: fmt.Sprintf("Invalid log format '%s'. Must be 'json' or 'console'", c.App.LogFormat),
		})
	}

	return errors
}

func (c *Config) validateEvolution() ValidationErrors {
	var errors ValidationErrors

	if c.Alpha < 0 || math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0) {
		errors = append(errors, ValidationError{
			Field:   "alpha",
			Message: fmt.Sprintf("Alpha must be a finite non-negative number (got %v)", c.Alpha),
		})
	}

	if c.MinimumStake <= 0 {
		errors = append(errors, ValidationError{
			Field:   "minimum_stake",
			Message: fmt.Sprintf("Minimum stake must be positive (got %v)", c.MinimumStake),
		})
	}

	if c.NumberOfNodes < 2 {
		errors = append(errors, ValidationError{
			Field:   "number_of_nodes",
			Message: fmt.Sprintf("Number of nodes must be at least 2 (got %d)", c.NumberOfNodes),
		})
	}

	if c.SampleSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "sample_size",
			Message: fmt.Sprintf("Sample size must be positive (got %d)", c.SampleSize),
		})
	}

	if c.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database",
			Message: "Match database is required (CSV file, CSV directory or postgres:// URL)",
		})
	}

	if c.MutationProbability < 0 || c.MutationProbability > 1 {
		errors = append(errors, ValidationError{
			Field:   "mutation_probability",
			Message: fmt.Sprintf("Mutation probability must be between 0 and 1 (got %v)", c.MutationProbability),
		})
	}

	if c.Workers < 0 {
		errors = append(errors, ValidationError{
			Field:   "workers",
			Message: "Workers must not be negative (0 uses every CPU)",
		})
	}

	if c.MaxGenerations < 0 {
		errors = append(errors, ValidationError{
			Field:   "max_generations",
			Message: "Max generations must not be negative (0 runs until interrupted)",
		})
	}

	if c.SavesDir == "" {
		errors = append(errors, ValidationError{
			Field:   "saves_dir",
			Message: "Saves directory is required",
		})
	}

	if c.UsesPostgres() && c.Postgres.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "postgres.pool_size",
			Message: "Pool size must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateOperators() ValidationErrors {
	var errors ValidationErrors

	if !oneOf(c.CrossoverMethod, genetic.CrossoverMethods) {
		errors = append(errors, ValidationError{
			Field:   "crossover_method",
			Message: fmt.Sprintf("Unknown crossover method '%s'. Must be one of: %v", c.CrossoverMethod, genetic.CrossoverMethods),
		})
	}

	if !oneOf(c.ParentSelectionMethod, genetic.SelectionMethods) {
		errors = append(errors, ValidationError{
			Field:   "parent_selection_method",
			Message: fmt.Sprintf("Unknown parent selection method '%s'. Must be one of: %v", c.ParentSelectionMethod, genetic.SelectionMethods),
		})
	} else if strings.EqualFold(c.ParentSelectionMethod, genetic.SelectionTournament) && c.TournamentSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "tournament_size",
			Message: fmt.Sprintf("Tournament size must be at least 1 (got %d)", c.TournamentSize),
		})
	}

	if !oneOf(c.MutationMethod, genetic.MutationMethods) {
		errors = append(errors, ValidationError{
			Field:   "mutation_method",
			Message: fmt.Sprintf("Unknown mutation method '%s'. Must be one of: %v", c.MutationMethod, genetic.MutationMethods),
		})
	}

	return errors
}

func (c *Config) validateRedis() ValidationErrors {
	var errors ValidationErrors

	if c.Redis.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "redis.host",
			Message: "Redis host is required",
		})
	}

	if c.Redis.Port == 0 {
		errors = append(errors, ValidationError{
			Field:   "redis.port",
			Message: "Redis port is required",
		})
	} else if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Redis.Port),
		})
	}

	if c.Redis.TTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "redis.ttl",
			Message: "TTL must not be negative",
		})
	}

	return errors
}

func (c *Config) validateNATS() ValidationErrors {
	var errors ValidationErrors

	if c.NATS.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "nats.url",
			Message: "NATS URL is required",
		})
	} else if !strings.HasPrefix(c.NATS.URL, "nats://") {
		errors = append(errors, ValidationError{
			Field:   "nats.url",
			Message: "NATS URL must start with 'nats://'",
		})
	}

	if c.NATS.Subject == "" {
		errors = append(errors, ValidationError{
			Field:   "nats.subject",
			Message: "NATS subject is required",
		})
	}

	return errors
}

func (c *Config) validateDownload() ValidationErrors {
	var errors ValidationErrors

	if c.Download.RequestsPerSecond < 0 {
		errors = append(errors, ValidationError{
			Field:   "download.requests_per_second",
			Message: "Requests per second must not be negative",
		})
	}

	if c.Download.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "download.timeout",
			Message: "Timeout must not be negative",
		})
	}

	return errors
}

func (c *Config) validateMonitoring() ValidationErrors {
	var errors ValidationErrors

	if c.Monitoring.PrometheusPort < 1 || c.Monitoring.PrometheusPort > 65535 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.prometheus_port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Monitoring.PrometheusPort),
		})
	}

	return errors
}

func (c *Config) validateAlerts() ValidationErrors {
	var errors ValidationErrors

	if c.Alerts.StagnationGenerations < 0 {
		errors = append(errors, ValidationError{
			Field:   "alerts.stagnation_generations",
			Message: "Stagnation generations must not be negative (0 disables the alert)",
		})
	}

	if c.Alerts.MinStdDev < 0 {
		errors = append(errors, ValidationError{
			Field:   "alerts.min_stddev",
			Message: "Minimum stddev must not be negative (0 disables the alert)",
		})
	}

	return errors
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}
