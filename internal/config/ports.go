package config

// Default ports of the services betevolve talks to
const (
	// PostgresPort is the default port for PostgreSQL.
	PostgresPort = 5432

	// RedisPort is the default port for Redis.
	RedisPort = 6379

	// NATSPort is the default port for NATS messaging.
	NATSPort = 4222

	// MetricsPort is the default Prometheus metrics port of cmd/evolve.
	MetricsPort = 9100
)
