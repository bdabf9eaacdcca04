package stats

import "time"

// Provider defines the interface for components that provide statistics
type Provider interface {
	// GetStats returns all statistics
	GetStats() map[string]interface{}

	// GetStatsFiltered returns statistics filtered by prefix
	GetStatsFiltered(prefix string) map[string]interface{}
}

// Collector interface defines methods for collecting statistics
type Collector interface {
	Provider

	// TrackOperation records a single operation
	TrackOperation(op OperationType)

	// TrackOperationWithLatency records an operation with its latency
	TrackOperationWithLatency(op OperationType, latencyNs uint64)

	// TrackError increments the counter for the specified error type
	TrackError(errorType string)

	// TrackBytes adds the specified number of bytes to the programmed or read counter
	TrackBytes(isWrite bool, bytes uint64)

	// TrackEntryCount records the current number of live entries
	TrackEntryCount(count uint64)

	// TrackSave increments the save counter
	TrackSave()

	// TrackErase increments the erase counter
	TrackErase()

	// StartLoad initializes load statistics and returns the start time
	StartLoad() time.Time

	// FinishLoad completes load statistics for one load-merge pass
	FinishLoad(startTime time.Time, merged, kept uint64, headerMatched bool)
}

// Ensure AtomicCollector implements the Collector interface
var _ Collector = (*AtomicCollector)(nil)
