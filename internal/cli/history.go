package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"ollama-performance/internal/metrics"
	"ollama-performance/internal/report"
	"ollama-performance/internal/store"
	"ollama-performance/internal/types"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// sessionSummary is the JSON form of one history entry.
type sessionSummary struct {
	ID        string           `json:"id"`
	Provider  string           `json:"provider"`
	StartedAt string           `json:"started_at"`
	EndedAt   string           `json:"ended_at,omitempty"`
	Resets    int              `json:"resets,omitempty"`
	Stats     types.Statistics `json:"stats"`
}

// HistoryCommand lists and inspects recorded sessions.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded sessions",
		Description: "Statistics cover requests since the last reset, the same figures the\n" +
			"session printed on exit. Sessions run with reset_on_model_switch keep\n" +
			"each reset segment; \"history show\" prints them one by one.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of sessions to list (0 for all)",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of a table",
			},
		},
		Action: listHistory,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show statistics of one session",
				ArgsUsage: "<session-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print JSON instead of the statistics view",
					},
				},
				Action: showHistory,
			},
		},
	}
}

func openStore(cmd *cli.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Path == "" {
		return nil, errors.New("storage.path is not configured")
	}
	return store.Open(cfg.Storage.Path)
}

// summarize recomputes the statistics of each reset segment of a session.
// The last entry covers the requests since the final reset.
func summarize(ctx context.Context, st *store.Store, sess store.Session) ([]types.Statistics, [][]types.Measurement, error) {
	segments, err := st.Segments(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	stats := make([]types.Statistics, len(segments))
	for i, ms := range segments {
		stats[i] = metrics.Summarize(ms)
	}
	return stats, segments, nil
}

func toSummary(sess store.Session, stats []types.Statistics) sessionSummary {
	s := sessionSummary{
		ID:        sess.ID,
		Provider:  sess.Provider,
		StartedAt: sess.StartedAt.Local().Format(historyTimeLayout),
		Resets:    sess.Segment,
		Stats:     stats[len(stats)-1],
	}
	if !sess.EndedAt.IsZero() {
		s.EndedAt = sess.EndedAt.Local().Format(historyTimeLayout)
	}
	return s
}

func listHistory(ctx context.Context, cmd *cli.Command) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		stats, _, err := summarize(ctx, st, sess)
		if err != nil {
			return err
		}
		summaries = append(summaries, toSummary(sess, stats))
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(out, summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tPROVIDER\tREQUESTS\tOK\tAVG (s)\tTOKENS/S\tRESETS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f\t%.1f\t%d\n",
			s.ID, s.StartedAt, s.Provider,
			s.Stats.TotalRequests, s.Stats.SuccessfulRequests,
			s.Stats.AverageResponseSeconds, s.Stats.AverageTokensPerSecond, s.Resets)
	}
	return w.Flush()
}

func showHistory(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("usage: history show <session-id>")
	}
	id := cmd.Args().First()

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no session with id %q", id)
		}
		return err
	}
	stats, segments, err := summarize(ctx, st, sess)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	summary := toSummary(sess, stats)
	if cmd.Bool("json") {
		var all []types.Measurement
		for _, ms := range segments {
			all = append(all, ms...)
		}
		v := struct {
			sessionSummary
			Segments     []types.Statistics  `json:"segments,omitempty"`
			Measurements []types.Measurement `json:"measurements"`
		}{sessionSummary: summary, Measurements: all}
		if sess.Segment > 0 {
			v.Segments = stats
		}
		return writeJSON(out, v)
	}

	fmt.Fprintf(out, "Session %s (%s)\n", summary.ID, summary.Provider)
	fmt.Fprintf(out, "Started: %s\n", summary.StartedAt)
	if summary.EndedAt != "" {
		fmt.Fprintf(out, "Ended:   %s\n", summary.EndedAt)
	}

	console := report.NewConsole(out)
	for i, ms := range segments {
		if len(segments) > 1 {
			fmt.Fprintf(out, "\nSegment %d of %d\n", i+1, len(segments))
		}
		console.Stats(stats[i])
		for _, g := range report.GroupByModel(ms) {
			fmt.Fprintf(out, "   %-24s %d requests, avg %.2fs, ~%.1f tokens/sec\n",
				g.Model, g.Stats.TotalRequests, g.Stats.AverageResponseSeconds, g.Stats.AverageTokensPerSecond)
		}
		fmt.Fprintln(out)
		console.Chart(ms)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
