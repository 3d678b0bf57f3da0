package types

import "time"

// Measurement is the immutable record of one prompt/response exchange.
type Measurement struct {
	Model           string    `json:"model,omitempty"`
	Response        string    `json:"response"` // error description when Succeeded is false
	ElapsedMillis   int64     `json:"elapsed_ms"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	EstimatedTokens int       `json:"estimated_tokens"`
	Succeeded       bool      `json:"succeeded"`
}

// ElapsedSeconds returns the monotonic duration in seconds.
func (m Measurement) ElapsedSeconds() float64 {
	return float64(m.ElapsedMillis) / 1000.0
}

// TokensPerSecond returns the estimated generation rate, or 0 when the
// exchange failed, produced no tokens or took no measurable time.
func (m Measurement) TokensPerSecond() float64 {
	if !m.Succeeded || m.EstimatedTokens <= 0 || m.ElapsedMillis <= 0 {
		return 0
	}
	return float64(m.EstimatedTokens) / m.ElapsedSeconds()
}

// HasRate reports whether TokensPerSecond is meaningful for this exchange.
func (m Measurement) HasRate() bool {
	return m.TokensPerSecond() > 0
}
