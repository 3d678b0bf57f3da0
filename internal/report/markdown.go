package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ollama-performance/internal/types"
)

// SessionInfo describes the session a report is generated for.
type SessionInfo struct {
	ID        string
	Provider  string
	Endpoint  string
	StartedAt time.Time
}

// MarkdownReporter generates markdown session reports
type MarkdownReporter struct {
	info SessionInfo
	now  func() time.Time
}

// NewMarkdownReporter creates a new markdown reporter
func NewMarkdownReporter(info SessionInfo) *MarkdownReporter {
	return &MarkdownReporter{
		info: info,
		now:  time.Now,
	}
}

// Generate generates the full markdown report
func (m *MarkdownReporter) Generate(stats types.Statistics, measurements []types.Measurement) string {
	var sb strings.Builder

	sb.WriteString("# Ollama Chat Session Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", m.now().Format("2006-01-02 15:04:05")))

	m.writeSession(&sb, measurements)
	m.writeSummary(&sb, stats)
	m.writeModels(&sb, measurements)
	m.writeRequests(&sb, measurements)
	m.writeErrors(&sb, measurements)

	return sb.String()
}

// writeSession writes the session section
func (m *MarkdownReporter) writeSession(sb *strings.Builder, measurements []types.Measurement) {
	sb.WriteString("## Session\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	if m.info.ID != "" {
		sb.WriteString(fmt.Sprintf("| Session ID | %s |\n", m.info.ID))
	}
	sb.WriteString(fmt.Sprintf("| Provider | %s |\n", m.info.Provider))
	if m.info.Endpoint != "" {
		sb.WriteString(fmt.Sprintf("| Endpoint | %s |\n", m.info.Endpoint))
	}
	if !m.info.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("| Started | %s |\n", m.info.StartedAt.Local().Format("2006-01-02 15:04:05")))
	}
	sb.WriteString(fmt.Sprintf("| Models Used | %s |\n\n", strings.Join(modelsUsed(measurements), ", ")))
}

// writeSummary writes the overall statistics section
func (m *MarkdownReporter) writeSummary(sb *strings.Builder, s types.Statistics) {
	sb.WriteString("## Summary\n\n")
	if s.IsEmpty() {
		sb.WriteString("No requests made.\n\n")
		return
	}

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Requests | %d |\n", s.TotalRequests))
	sb.WriteString(fmt.Sprintf("| Successful Requests | %d (%.2f%%) |\n", s.SuccessfulRequests, s.SuccessRate))
	sb.WriteString(fmt.Sprintf("| Failed Requests | %d |\n", s.FailedRequests))
	sb.WriteString(fmt.Sprintf("| Average Response Time | %.2fs |\n", s.AverageResponseSeconds))
	sb.WriteString(fmt.Sprintf("| Fastest Response | %.2fs |\n", s.FastestResponseSeconds))
	sb.WriteString(fmt.Sprintf("| Slowest Response | %.2fs |\n", s.SlowestResponseSeconds))
	sb.WriteString(fmt.Sprintf("| P50 Response | %.2fs |\n", s.P50ResponseSeconds))
	sb.WriteString(fmt.Sprintf("| P95 Response | %.2fs |\n", s.P95ResponseSeconds))
	sb.WriteString(fmt.Sprintf("| Average Speed | %.1f tokens/sec |\n", s.AverageTokensPerSecond))
	sb.WriteString(fmt.Sprintf("| Estimated Tokens | %d |\n", s.TotalEstimatedTokens))
	sb.WriteString(fmt.Sprintf("| Total Session Time | %.1fs |\n\n", s.TotalSessionSeconds))
}

// writeModels writes per-model statistics when more than one model was used
func (m *MarkdownReporter) writeModels(sb *strings.Builder, measurements []types.Measurement) {
	groups := GroupByModel(measurements)
	if len(groups) < 2 {
		return
	}

	sb.WriteString("## Results by Model\n\n")
	sb.WriteString("| Model | Requests | Success Rate | Avg (s) | Min (s) | Max (s) | Tokens/s |\n")
	sb.WriteString("|-------|----------|--------------|---------|---------|---------|----------|\n")
	for _, g := range groups {
		s := g.Stats
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% | %.2f | %.2f | %.2f | %.1f |\n",
			g.Model,
			s.TotalRequests,
			s.SuccessRate,
			s.AverageResponseSeconds,
			s.FastestResponseSeconds,
			s.SlowestResponseSeconds,
			s.AverageTokensPerSecond,
		))
	}
	sb.WriteString("\n")
}

// writeRequests writes one row per exchange
func (m *MarkdownReporter) writeRequests(sb *strings.Builder, measurements []types.Measurement) {
	if len(measurements) == 0 {
		return
	}

	sb.WriteString("## Requests\n\n")
	sb.WriteString("| # | Start | Model | Status | Time (ms) | Est. Tokens | Tokens/s |\n")
	sb.WriteString("|---|-------|-------|--------|-----------|-------------|----------|\n")
	for i, ms := range measurements {
		status := "ok"
		if !ms.Succeeded {
			status = "failed"
		}
		rate := "-"
		if ms.HasRate() {
			rate = fmt.Sprintf("%.1f", ms.TokensPerSecond())
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d | %d | %s |\n",
			i+1,
			ms.StartTime.Local().Format(clockLayout),
			ms.Model,
			status,
			ms.ElapsedMillis,
			ms.EstimatedTokens,
			rate,
		))
	}
	sb.WriteString("\n")
}

// writeErrors writes the failure descriptions
func (m *MarkdownReporter) writeErrors(sb *strings.Builder, measurements []types.Measurement) {
	sb.WriteString("## Errors\n\n")

	count := 0
	for i, ms := range measurements {
		if ms.Succeeded {
			continue
		}
		count++
		sb.WriteString(fmt.Sprintf("- Request %d (%s): %s\n", i+1, ms.Model, strings.ReplaceAll(ms.Response, "\n", " ")))
	}
	if count == 0 {
		sb.WriteString("No errors occurred during the session.\n")
	}
	sb.WriteString("\n")
}

// SaveToFile saves the report to a file, creating parent directories.
func (m *MarkdownReporter) SaveToFile(content string, filename string) error {
	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}

func modelsUsed(measurements []types.Measurement) []string {
	var models []string
	seen := map[string]bool{}
	for _, ms := range measurements {
		if ms.Model != "" && !seen[ms.Model] {
			seen[ms.Model] = true
			models = append(models, ms.Model)
		}
	}
	if len(models) == 0 {
		return []string{"-"}
	}
	return models
}
