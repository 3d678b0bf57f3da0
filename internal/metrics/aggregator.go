package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"ollama-performance/internal/types"
)

// Aggregator collects the measurements of one session and computes
// statistics over them on demand.
type Aggregator struct {
	mu sync.Mutex

	// Insertion order is chronological order.
	measurements []types.Measurement
}

// NewAggregator creates an empty Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		measurements: make([]types.Measurement, 0),
	}
}

// Record appends a measurement, failed ones included.
func (a *Aggregator) Record(m types.Measurement) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.measurements = append(a.measurements, m)
}

// Snapshot computes statistics over everything recorded so far.
func (a *Aggregator) Snapshot() types.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Summarize(a.measurements)
}

// Measurements returns a copy of the recorded measurements in chronological order.
func (a *Aggregator) Measurements() []types.Measurement {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.Measurement, len(a.measurements))
	copy(out, a.measurements)
	return out
}

// Len returns the number of recorded measurements.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.measurements)
}

// Reset clears all collected measurements
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.measurements = make([]types.Measurement, 0)
}

// Summarize computes statistics over measurements without modifying them.
// Degenerate inputs (none recorded, none succeeded) yield zero values.
func Summarize(measurements []types.Measurement) types.Statistics {
	stats := types.Statistics{
		TotalRequests: len(measurements),
	}
	if len(measurements) == 0 {
		return stats
	}

	var (
		latenciesMs []float64
		rates       []float64
		sumMs       int64
		first, last time.Time
	)

	for i, m := range measurements {
		if i == 0 || m.StartTime.Before(first) {
			first = m.StartTime
		}
		if i == 0 || m.EndTime.After(last) {
			last = m.EndTime
		}

		if !m.Succeeded {
			continue
		}
		stats.SuccessfulRequests++
		stats.TotalEstimatedTokens += m.EstimatedTokens
		sumMs += m.ElapsedMillis
		latenciesMs = append(latenciesMs, float64(m.ElapsedMillis))

		// Each exchange contributes its own rate; the mean is unweighted.
		if m.HasRate() {
			rates = append(rates, m.TokensPerSecond())
		}
	}

	stats.FailedRequests = stats.TotalRequests - stats.SuccessfulRequests
	stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests) * 100.0

	if span := last.Sub(first); span > 0 {
		stats.TotalSessionSeconds = span.Seconds()
	}

	if len(latenciesMs) > 0 {
		sort.Float64s(latenciesMs)

		// Averaging whole milliseconds keeps the mean inside [min, max].
		stats.AverageResponseSeconds = float64(sumMs) / float64(len(latenciesMs)) / 1000.0
		stats.FastestResponseSeconds = latenciesMs[0] / 1000.0
		stats.SlowestResponseSeconds = latenciesMs[len(latenciesMs)-1] / 1000.0
		stats.P50ResponseSeconds = percentile(latenciesMs, 50) / 1000.0
		stats.P95ResponseSeconds = percentile(latenciesMs, 95) / 1000.0
	}

	stats.AverageTokensPerSecond = average(rates)

	return stats
}

// average calculates the average of a slice of float64
func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile calculates the percentile of a sorted slice
func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}

	index := (p / 100.0) * float64(len(sortedValues)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sortedValues[lower]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}
