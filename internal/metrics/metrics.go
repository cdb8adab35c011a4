package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Bounded cardinality constants for metric labels.
const (
	// Bet outcome labels
	OutcomeWon       = "won"
	OutcomeLost      = "lost"
	OutcomeNotPlayed = "not_played"
	OutcomeSkipped   = "skipped"

	// Download error categories
	DownloadErrorTimeout  = "timeout"
	DownloadErrorNotFound = "not_found"
	DownloadErrorOpen     = "circuit_open"
	DownloadErrorNetwork  = "network"
	DownloadErrorStatus   = "bad_status"
	DownloadErrorParse    = "parse"
	DownloadErrorOther    = "other"

	// Download results
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// NormalizeDownloadError maps download errors to a bounded set
func NormalizeDownloadError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return DownloadErrorOpen
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "not found"):
		return DownloadErrorNotFound
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return DownloadErrorTimeout
	case strings.Contains(errStr, "status"):
		return DownloadErrorStatus
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "dial") || strings.Contains(errStr, "network"):
		return DownloadErrorNetwork
	case strings.Contains(errStr, "column") || strings.Contains(errStr, "csv"):
		return DownloadErrorParse
	default:
		return DownloadErrorOther
	}
}

// Evolution Metrics
var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_generations_total",
		Help: "Total number of evaluated generations",
	}, []string{"save"})

	CurrentGeneration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betevolve_generation",
		Help: "Number of the last evaluated generation",
	}, []string{"save"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betevolve_generation_duration_seconds",
		Help:    "Wall time of one generation (sampling, evaluation, reproduction)",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"save"})

	PopulationSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betevolve_population_size",
		Help: "Number of nodes in the evaluated generation",
	}, []string{"save"})

	BestFitness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betevolve_fitness_best",
		Help: "Highest fitness of the last evaluated generation",
	}, []string{"save"})

	MeanFitness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betevolve_fitness_mean",
		Help: "Mean fitness of the last evaluated generation",
	}, []string{"save"})

	StdDevFitness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betevolve_fitness_stddev",
		Help: "Sample standard deviation of fitness of the last evaluated generation",
	}, []string{"save"})

	WorstFitness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "betevolve_fitness_worst",
		Help: "Lowest fitness of the last evaluated generation",
	}, []string{"save"})

	Bets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_bets_total",
		Help: "Simulated bets by outcome",
	}, []string{"save", "outcome"})
)

// Data Metrics
var (
	MatchesStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betevolve_matches_stored",
		Help: "Number of matches in the match store",
	})

	MatchesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_matches_ingested_total",
		Help: "Matches imported by league",
	}, []string{"league"})

	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_downloads_total",
		Help: "League file downloads by result",
	}, []string{"result"})

	DownloadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_download_errors_total",
		Help: "League file download errors by category",
	}, []string{"category"})
)

// System Health Metrics
var (
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betevolve_database_connections_active",
		Help: "Number of active database connections",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betevolve_database_connections_idle",
		Help: "Number of idle database connections",
	})

	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_redis_operations_total",
		Help: "Redis commands issued by command name",
	}, []string{"operation"})

	RedisErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betevolve_redis_errors_total",
		Help: "Redis commands that failed",
	})

	ObserverErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_observer_errors_total",
		Help: "Generation observers that returned an error",
	}, []string{"observer"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betevolve_http_requests_total",
		Help: "Requests served by the metrics server",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betevolve_http_request_duration_ms",
		Help:    "Request duration of the metrics server in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
	}, []string{"method", "path", "status"})
)

// Helper functions to update metrics

// UpdateDatabaseConnections updates database connection metrics
func UpdateDatabaseConnections(active, idle int32) {
	DatabaseConnectionsActive.Set(float64(active))
	DatabaseConnectionsIdle.Set(float64(idle))
}

// RecordHTTPRequest records a request served by the metrics server
func RecordHTTPRequest(method, path, statusCode string, durationMs float64) {
	HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationMs)
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
}

// RecordRedisOperation records a Redis command
func RecordRedisOperation(operation string, err error) {
	RedisOperations.WithLabelValues(strings.ToLower(operation)).Inc()
	if err != nil {
		RedisErrors.Inc()
	}
}

// RecordIngest records matches imported for a league
func RecordIngest(league string, imported int) {
	MatchesIngested.WithLabelValues(league).Add(float64(imported))
}

// RecordDownload records a league file download with normalized error category
func RecordDownload(err error) {
	if err == nil {
		Downloads.WithLabelValues(ResultSuccess).Inc()
		return
	}
	Downloads.WithLabelValues(ResultFailure).Inc()
	DownloadErrors.WithLabelValues(NormalizeDownloadError(err)).Inc()
}

// RecordObserverError records a failed generation observer
func RecordObserverError(observer string) {
	ObserverErrors.WithLabelValues(observer).Inc()
}
