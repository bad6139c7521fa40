package ports

import "time"

// Broadcaster delivers change notifications to registered page contexts
type Broadcaster interface {
	// Broadcast sends message to every registered context without blocking.
	// It returns how many contexts accepted the message.
	Broadcast(message []byte) int
}

// Metrics records router and broadcast activity
type Metrics interface {
	// ObserveRequest records one handled request
	ObserveRequest(requestType string, code string, elapsed time.Duration)

	// ObserveBroadcast records one broadcast and how many contexts it reached
	ObserveBroadcast(delivered int)

	// ObservePolicyDenial records a plugin blocked by the security policy
	ObservePolicyDenial(operation string)
}

// LoggingGateway defines the interface for logging operations
type LoggingGateway interface {
	// Log logs a message with the specified level
	Log(level LogLevel, message string, fields map[string]interface{})

	// LogError logs an error
	LogError(err error, message string, fields map[string]interface{})
}

// LogLevel defines the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRequest(string, string, time.Duration) {}
func (NoopMetrics) ObserveBroadcast(int)                         {}
func (NoopMetrics) ObservePolicyDenial(string)                   {}

// NoopLogger discards all log records.
type NoopLogger struct{}

func (NoopLogger) Log(LogLevel, string, map[string]interface{})   {}
func (NoopLogger) LogError(error, string, map[string]interface{}) {}
