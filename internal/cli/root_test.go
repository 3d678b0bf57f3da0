package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-performance/internal/store"
	"ollama-performance/internal/types"
)

func TestRootCommand_Commands(t *testing.T) {
	root := RootCommand()

	names := make(map[string]bool, len(root.Commands))
	for _, c := range root.Commands {
		names[c.Name] = true
	}

	assert.Equal(t, "chat", root.DefaultCommand)
	assert.Contains(t, names, "chat")
	assert.Contains(t, names, "models")
	assert.Contains(t, names, "history")
	assert.Contains(t, names, "bench")
}

// setup isolates the environment and writes a config file pointing the
// history database and endpoint into temporary locations.
func setup(t *testing.T, endpoint string) (cfgPath, dbPath string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"OLLAMA_CHAT_PROVIDER", "OLLAMA_CHAT_ENDPOINT", "OLLAMA_CHAT_MODELS",
		"OLLAMA_CHAT_HISTORY", "OLLAMA_CHAT_HISTORY_PATH", "OLLAMA_CHAT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "history.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`provider:
  endpoint: %s
models: [llama3.2:latest, phi3:latest]
storage:
  path: %s
`, endpoint, dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath, dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCommand()
	root.Writer = &out
	err := root.Run(context.Background(), append([]string{"ollama-chat"}, args...))
	return out.String(), err
}

func seedSession(t *testing.T, dbPath, id string) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateSession(ctx, store.Session{ID: id, Provider: "ollama", StartedAt: start}))
	for i, ms := range []int64{1000, 2000, 3000} {
		s := start.Add(time.Duration(i) * 5 * time.Second)
		require.NoError(t, st.SaveMeasurement(ctx, id, types.Measurement{
			Model:           "llama3.2:latest",
			Response:        "reply",
			ElapsedMillis:   ms,
			StartTime:       s,
			EndTime:         s.Add(time.Duration(ms) * time.Millisecond),
			EstimatedTokens: 40,
			Succeeded:       true,
		}))
	}
	require.NoError(t, st.EndSession(ctx, id, start.Add(time.Minute)))
}

func TestHistory_Empty(t *testing.T) {
	cfgPath, _ := setup(t, "http://localhost:11434/v1")

	out, err := run(t, "--config", cfgPath, "history")

	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestHistory_ListJSON(t *testing.T) {
	cfgPath, dbPath := setup(t, "http://localhost:11434/v1")
	seedSession(t, dbPath, "cnv8ab3j0000000000a0")

	out, err := run(t, "--config", cfgPath, "history", "--json")
	require.NoError(t, err)

	var got []sessionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "cnv8ab3j0000000000a0", got[0].ID)
	assert.Equal(t, 3, got[0].Stats.TotalRequests)
	assert.InDelta(t, 2.0, got[0].Stats.AverageResponseSeconds, 1e-9)
	assert.InDelta(t, 13.0, got[0].Stats.TotalSessionSeconds, 1e-9)
	assert.NotEmpty(t, got[0].EndedAt)
}

func TestHistory_Show(t *testing.T) {
	cfgPath, dbPath := setup(t, "http://localhost:11434/v1")
	seedSession(t, dbPath, "cnv8ab3j0000000000a0")

	out, err := run(t, "--config", cfgPath, "history", "show", "cnv8ab3j0000000000a0")

	require.NoError(t, err)
	assert.Contains(t, out, "Session cnv8ab3j0000000000a0 (ollama)")
	assert.Contains(t, out, "Total Requests:")
	assert.Contains(t, out, "llama3.2:latest")
	assert.Contains(t, out, "response time (s)")
}

// seedResetSession records two requests, a statistics reset and one more
// request on another model.
func seedResetSession(t *testing.T, dbPath, id string) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateSession(ctx, store.Session{ID: id, Provider: "ollama", StartedAt: start}))
	log := st.Log(id)
	save := func(model string, offset time.Duration, ms int64) {
		s := start.Add(offset)
		require.NoError(t, log.Save(ctx, types.Measurement{
			Model:           model,
			Response:        "reply",
			ElapsedMillis:   ms,
			StartTime:       s,
			EndTime:         s.Add(time.Duration(ms) * time.Millisecond),
			EstimatedTokens: 40,
			Succeeded:       true,
		}))
	}
	save("llama3.2:latest", 0, 1000)
	save("llama3.2:latest", 5*time.Second, 2000)
	require.NoError(t, log.Reset(ctx))
	save("phi3:latest", 20*time.Second, 4000)
	require.NoError(t, st.EndSession(ctx, id, start.Add(time.Minute)))
}

func TestHistory_ListUsesStatisticsSinceLastReset(t *testing.T) {
	cfgPath, dbPath := setup(t, "http://localhost:11434/v1")
	seedResetSession(t, dbPath, "cnv8ab3j0000000000b0")

	out, err := run(t, "--config", cfgPath, "history", "--json")
	require.NoError(t, err)

	var got []sessionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Resets)
	assert.Equal(t, 1, got[0].Stats.TotalRequests)
	assert.InDelta(t, 4.0, got[0].Stats.AverageResponseSeconds, 1e-9)
}

func TestHistory_ShowPrintsEachSegment(t *testing.T) {
	cfgPath, dbPath := setup(t, "http://localhost:11434/v1")
	seedResetSession(t, dbPath, "cnv8ab3j0000000000b0")

	out, err := run(t, "--config", cfgPath, "history", "show", "cnv8ab3j0000000000b0")

	require.NoError(t, err)
	assert.Contains(t, out, "Segment 1 of 2")
	assert.Contains(t, out, "Segment 2 of 2")
	assert.Less(t, bytes.Index([]byte(out), []byte("Segment 2 of 2")), bytes.Index([]byte(out), []byte("phi3:latest")))
}

func TestHistory_ShowJSONSegments(t *testing.T) {
	cfgPath, dbPath := setup(t, "http://localhost:11434/v1")
	seedResetSession(t, dbPath, "cnv8ab3j0000000000b0")

	out, err := run(t, "--config", cfgPath, "history", "show", "--json", "cnv8ab3j0000000000b0")
	require.NoError(t, err)

	var got struct {
		Stats        types.Statistics    `json:"stats"`
		Segments     []types.Statistics  `json:"segments"`
		Measurements []types.Measurement `json:"measurements"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Segments, 2)
	assert.Equal(t, 2, got.Segments[0].TotalRequests)
	assert.Equal(t, 1, got.Segments[1].TotalRequests)
	assert.Equal(t, 1, got.Stats.TotalRequests)
	assert.Len(t, got.Measurements, 3)
}

func TestHistory_ShowUnknown(t *testing.T) {
	cfgPath, _ := setup(t, "http://localhost:11434/v1")

	_, err := run(t, "--config", cfgPath, "history", "show", "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `no session with id "missing"`)
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"llama3.2:latest"},{"id":"qwen2.5:7b"}]}`))
	}))
	defer srv.Close()

	cfgPath, _ := setup(t, srv.URL+"/v1")

	out, err := run(t, "--config", cfgPath, "models")

	require.NoError(t, err)
	assert.Contains(t, out, "1. llama3.2:latest")
	assert.Contains(t, out, "2. phi3:latest")
	assert.Contains(t, out, "* llama3.2:latest")
	assert.Contains(t, out, "  qwen2.5:7b")
}

func TestBench(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"The quick brown fox jumps."}}]}`))
	}))
	defer srv.Close()

	cfgPath, _ := setup(t, srv.URL+"/v1")
	reportPath := filepath.Join(t.TempDir(), "bench.md")

	out, err := run(t, "--config", cfgPath, "bench",
		"--model", "phi3:latest", "--requests", "6", "--concurrency", "2", "--report", reportPath)

	require.NoError(t, err)
	assert.Equal(t, int64(6), requests.Load())
	assert.Contains(t, out, "Benchmarking phi3:latest with 2 worker(s)...")
	assert.Contains(t, out, "📈 Session Statistics:")
	assert.Contains(t, out, "Report saved to: "+reportPath)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Total Requests | 6 |")
}
