package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns base, then base+step, base+2*step, ... on successive calls.
func stepClock(base time.Time, step time.Duration) Clock {
	calls := 0
	return func() time.Time {
		t := base.Add(time.Duration(calls) * step)
		calls++
		return t
	}
}

var clockBase = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestRecorder_Success(t *testing.T) {
	r := NewRecorder(WithClock(stepClock(clockBase, 1500*time.Millisecond)))

	m := r.Measure(context.Background(), "llama3.2:latest", func(ctx context.Context) (string, error) {
		return "Hello from the model!", nil
	})

	assert.True(t, m.Succeeded)
	assert.Equal(t, "llama3.2:latest", m.Model)
	assert.Equal(t, "Hello from the model!", m.Response)
	assert.Equal(t, int64(1500), m.ElapsedMillis)
	assert.Equal(t, EstimateTokens("Hello from the model!"), m.EstimatedTokens)
	assert.Equal(t, clockBase, m.StartTime)
	assert.Equal(t, clockBase.Add(1500*time.Millisecond), m.EndTime)
}

func TestRecorder_Failure(t *testing.T) {
	r := NewRecorder(WithClock(stepClock(clockBase, 250*time.Millisecond)))

	m := r.Measure(context.Background(), "phi3:latest", func(ctx context.Context) (string, error) {
		return "partial output", errors.New("connection refused")
	})

	assert.False(t, m.Succeeded)
	assert.Equal(t, "Error: connection refused", m.Response)
	assert.Equal(t, 0, m.EstimatedTokens)
	assert.Equal(t, int64(250), m.ElapsedMillis)
	assert.False(t, m.EndTime.Before(m.StartTime))
}

func TestRecorder_FailureDescriptionNeverEmpty(t *testing.T) {
	r := NewRecorder()

	m := r.Measure(context.Background(), "", func(ctx context.Context) (string, error) {
		return "", errors.New("")
	})

	assert.False(t, m.Succeeded)
	assert.NotEmpty(t, m.Response)
}

func TestRecorder_PanicIsCaptured(t *testing.T) {
	r := NewRecorder()

	var m = r.Measure(context.Background(), "", func(ctx context.Context) (string, error) {
		panic("boom")
	})

	assert.False(t, m.Succeeded)
	assert.Contains(t, m.Response, "boom")
}

func TestRecorder_InvokesExactlyOnce(t *testing.T) {
	r := NewRecorder()
	calls := 0

	r.Measure(context.Background(), "", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("fail")
	})

	assert.Equal(t, 1, calls)
}

func TestRecorder_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	r := NewRecorder()

	m := r.Measure(ctx, "", func(got context.Context) (string, error) {
		return got.Value(key{}).(string), nil
	})

	require.True(t, m.Succeeded)
	assert.Equal(t, "value", m.Response)
}

func TestRecorder_EmptyResponse(t *testing.T) {
	r := NewRecorder()

	m := r.Measure(context.Background(), "", func(ctx context.Context) (string, error) {
		return "", nil
	})

	assert.True(t, m.Succeeded)
	assert.Equal(t, 0, m.EstimatedTokens)
}

func TestRecorder_BackwardsWallClock(t *testing.T) {
	r := NewRecorder(WithClock(stepClock(clockBase, -time.Second)))

	m := r.Measure(context.Background(), "", func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	assert.Equal(t, int64(0), m.ElapsedMillis)
	assert.False(t, m.EndTime.Before(m.StartTime))
}

func TestRecorder_RealClockStripsMonotonic(t *testing.T) {
	r := NewRecorder()

	m := r.Measure(context.Background(), "", func(ctx context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})

	assert.GreaterOrEqual(t, m.ElapsedMillis, int64(5))
	// Round(0) strips the monotonic reading, so String has no "m=" suffix.
	assert.NotContains(t, m.StartTime.String(), "m=")
	assert.NotContains(t, m.EndTime.String(), "m=")
}
