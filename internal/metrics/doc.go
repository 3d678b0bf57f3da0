// Package metrics times prompt/response exchanges and aggregates the
// resulting measurements into running session statistics.
package metrics
