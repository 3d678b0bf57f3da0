package types

// Statistics is a point-in-time view over a session's measurements.
// Latency fields only consider successful exchanges; the session span
// covers every exchange.
type Statistics struct {
	// General stats
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
	SuccessRate        float64 `json:"success_rate"` // percent

	// Latency stats (in seconds)
	AverageResponseSeconds float64 `json:"average_response_seconds"`
	FastestResponseSeconds float64 `json:"fastest_response_seconds"`
	SlowestResponseSeconds float64 `json:"slowest_response_seconds"`
	P50ResponseSeconds     float64 `json:"p50_response_seconds"`
	P95ResponseSeconds     float64 `json:"p95_response_seconds"`

	// Throughput
	AverageTokensPerSecond float64 `json:"average_tokens_per_second"`
	TotalEstimatedTokens   int     `json:"total_estimated_tokens"`

	// Wall-clock span from the first start to the last end
	TotalSessionSeconds float64 `json:"total_session_seconds"`
}

// IsEmpty reports whether no exchange has been recorded.
func (s Statistics) IsEmpty() bool {
	return s.TotalRequests == 0
}
