package ports

import "time"

// QueryObserver receives pipeline telemetry. Implementations must be safe for
// concurrent use.
type QueryObserver interface {
	ObserveStage(stage string, duration time.Duration)
	ObserveOutcome(kind string, sources int, duration time.Duration)
	ObserveVerification(score *float64)
	ObserveRerankFallback()
}
