package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ollama-performance/internal/types"
)

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO sessions (id, provider, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Provider, formatTime(sess.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// EndSession stamps the end time of a session.
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE id = ?`, formatTime(endedAt), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMeasurement appends one measurement to the current segment of a session.
func (s *Store) SaveMeasurement(ctx context.Context, sessionID string, m types.Measurement) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO measurements
			(session_id, model, started_at, ended_at, elapsed_ms, estimated_tokens, succeeded, response, segment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT segment FROM sessions WHERE id = ?))`,
		sessionID, m.Model, formatTime(m.StartTime), formatTime(m.EndTime),
		m.ElapsedMillis, m.EstimatedTokens, m.Succeeded, m.Response, sessionID)
	if err != nil {
		return fmt.Errorf("failed to save measurement: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first. A limit <= 0 returns all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT s.id, s.provider, s.started_at, COALESCE(s.ended_at, ''), COUNT(m.id), s.segment
		FROM sessions s
		LEFT JOIN measurements m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns the session with the given ID.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.QueryRowContext(ctx, `
		SELECT s.id, s.provider, s.started_at, COALESCE(s.ended_at, ''), COUNT(m.id), s.segment
		FROM sessions s
		LEFT JOIN measurements m ON m.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// ResetSegment starts a new statistics segment for a session. Measurements
// saved afterwards are kept apart from earlier ones.
func (s *Store) ResetSegment(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, `UPDATE sessions SET segment = segment + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to reset session segment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Segments returns a session's measurements grouped by segment, one entry
// per segment up to the current one. Segments without measurements are empty.
func (s *Store) Segments(ctx context.Context, sess Session) ([][]types.Measurement, error) {
	segments := make([][]types.Measurement, sess.Segment+1)
	err := s.scanMeasurements(ctx, sess.ID, func(segment int, m types.Measurement) {
		if segment >= 0 && segment < len(segments) {
			segments[segment] = append(segments[segment], m)
		}
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// Measurements returns a session's measurements in chronological order.
func (s *Store) Measurements(ctx context.Context, sessionID string) ([]types.Measurement, error) {
	var out []types.Measurement
	err := s.scanMeasurements(ctx, sessionID, func(_ int, m types.Measurement) {
		out = append(out, m)
	})
	return out, err
}

func (s *Store) scanMeasurements(ctx context.Context, sessionID string, fn func(segment int, m types.Measurement)) error {
	rows, err := s.QueryContext(ctx, `
		SELECT model, started_at, ended_at, elapsed_ms, estimated_tokens, succeeded, response, segment
		FROM measurements
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load measurements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m          types.Measurement
			start, end string
			segment    int
		)
		if err := rows.Scan(&m.Model, &start, &end, &m.ElapsedMillis, &m.EstimatedTokens, &m.Succeeded, &m.Response, &segment); err != nil {
			return fmt.Errorf("failed to scan measurement: %w", err)
		}
		if m.StartTime, err = parseTime(start); err != nil {
			return fmt.Errorf("invalid start time %q: %w", start, err)
		}
		if m.EndTime, err = parseTime(end); err != nil {
			return fmt.Errorf("invalid end time %q: %w", end, err)
		}
		fn(segment, m)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var (
		sess           Session
		started, ended string
	)
	if err := sc.Scan(&sess.ID, &sess.Provider, &started, &ended, &sess.Requests, &sess.Segment); err != nil {
		return Session{}, err
	}

	var err error
	if sess.StartedAt, err = parseTime(started); err != nil {
		return Session{}, fmt.Errorf("invalid session start %q: %w", started, err)
	}
	if ended != "" {
		if sess.EndedAt, err = parseTime(ended); err != nil {
			return Session{}, fmt.Errorf("invalid session end %q: %w", ended, err)
		}
	}
	return sess, nil
}

// SessionLog appends measurements to one session.
type SessionLog struct {
	store *Store
	id    string
}

// Log returns a SessionLog writing to the session with the given ID.
func (s *Store) Log(sessionID string) *SessionLog {
	return &SessionLog{store: s, id: sessionID}
}

// ID returns the session ID.
func (l *SessionLog) ID() string {
	return l.id
}

// Save appends m to the session.
func (l *SessionLog) Save(ctx context.Context, m types.Measurement) error {
	return l.store.SaveMeasurement(ctx, l.id, m)
}

// Reset marks a statistics reset in the session.
func (l *SessionLog) Reset(ctx context.Context) error {
	return l.store.ResetSegment(ctx, l.id)
}
