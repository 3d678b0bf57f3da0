package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-performance/internal/metrics"
	"ollama-performance/internal/types"
)

func TestMarkdownReporter_Generate(t *testing.T) {
	failed := measurement("phi3:latest", 120, 0, false)
	failed.Response = "Error: model not found"
	ms := []types.Measurement{
		measurement("llama3.2:latest", 1000, 40, true),
		measurement("phi3:latest", 2000, 40, true),
		failed,
	}

	r := NewMarkdownReporter(SessionInfo{ID: "cnv8ab3j", Provider: "ollama", Endpoint: "http://localhost:11434/v1"})
	r.now = func() time.Time { return base }

	out := r.Generate(metrics.Summarize(ms), ms)

	assert.Contains(t, out, "# Ollama Chat Session Report")
	assert.Contains(t, out, "Generated: 2026-03-14 09:26:53")
	assert.Contains(t, out, "| Session ID | cnv8ab3j |")
	assert.Contains(t, out, "| Models Used | llama3.2:latest, phi3:latest |")
	assert.Contains(t, out, "| Total Requests | 3 |")
	assert.Contains(t, out, "| Failed Requests | 1 |")
	assert.Contains(t, out, "## Results by Model")
	assert.Contains(t, out, "| 3 | 09:26:53 | phi3:latest | failed | 120 | 0 | - |")
	assert.Contains(t, out, "- Request 3 (phi3:latest): Error: model not found")
}

func TestMarkdownReporter_GenerateEmpty(t *testing.T) {
	r := NewMarkdownReporter(SessionInfo{Provider: "ollama"})

	out := r.Generate(types.Statistics{}, nil)

	assert.Contains(t, out, "No requests made.")
	assert.Contains(t, out, "No errors occurred during the session.")
	assert.NotContains(t, out, "## Requests")
	assert.NotContains(t, out, "## Results by Model")
}

func TestMarkdownReporter_SaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "session.md")
	r := NewMarkdownReporter(SessionInfo{})

	require.NoError(t, r.SaveToFile("# report\n", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# report\n", string(data))
}

func TestGroupByModel(t *testing.T) {
	groups := GroupByModel([]types.Measurement{
		measurement("b", 1000, 10, true),
		measurement("a", 2000, 10, true),
		measurement("b", 3000, 10, true),
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "b", groups[0].Model)
	assert.Equal(t, 2, groups[0].Stats.TotalRequests)
	assert.InDelta(t, 2.0, groups[0].Stats.AverageResponseSeconds, 1e-9)
	assert.Equal(t, "a", groups[1].Model)
}
