// Package report renders measurements and session statistics for the
// console and as markdown session reports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"ollama-performance/internal/types"
)

// clockLayout formats wall-clock instants in the metrics view.
const clockLayout = "15:04:05"

// Console handles real-time console output
type Console struct {
	out io.Writer

	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	dim    lipgloss.Style
	err    lipgloss.Style
	ok     lipgloss.Style
}

// NewConsole creates a Console writing to out. Colors are only emitted when
// out is a terminal.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:    out,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		label:  r.NewStyle().Foreground(lipgloss.Color("252")).Width(26),
		value:  r.NewStyle().Foreground(lipgloss.Color("229")).Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("240")),
		err:    r.NewStyle().Foreground(lipgloss.Color("196")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

// Banner prints the application title.
func (c *Console) Banner() {
	fmt.Fprintln(c.out, c.header.Render("🤖 Ollama Performance Test Chat"))
	fmt.Fprintln(c.out, strings.Repeat("=", 32))
}

// Connecting prints the handshake prefix; Connected or ConnectionFailed completes the line.
func (c *Console) Connecting() {
	fmt.Fprint(c.out, "Testing connection... ")
}

// ConnectionOK completes the handshake line.
func (c *Console) ConnectionOK() {
	fmt.Fprintln(c.out, c.ok.Render("✅"))
}

// ConnectionFailed reports a failed handshake with a hint for local servers.
func (c *Console) ConnectionFailed(err error, hint string) {
	fmt.Fprintln(c.out, c.err.Render(fmt.Sprintf("❌ Connection failed: %v", err)))
	if hint != "" {
		fmt.Fprintln(c.out, hint)
	}
}

// Connected announces the active model and the available commands.
func (c *Console) Connected(model string) {
	fmt.Fprintf(c.out, "\n✅ Connected to %s\n", model)
	fmt.Fprintln(c.out, c.dim.Render("Type 'quit' to exit, 'model' to switch models, 'stats' for session stats, 'help' for help"))
	fmt.Fprintln(c.out)
}

// Switched announces a model switch.
func (c *Console) Switched(model string, reset bool) {
	fmt.Fprintf(c.out, "✅ Switched to %s\n", model)
	if reset {
		fmt.Fprintln(c.out, c.dim.Render("Session statistics were reset."))
	}
	fmt.Fprintln(c.out)
}

// Help lists the interactive commands.
func (c *Console) Help() {
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  quit    exit and print the session summary")
	fmt.Fprintln(c.out, "  model   switch to another model")
	fmt.Fprintln(c.out, "  stats   show session statistics")
	fmt.Fprintln(c.out, "  help    show this list")
	fmt.Fprintln(c.out, "Anything else is sent to the model as a prompt.")
	fmt.Fprintln(c.out)
}

// Prompt prints the input prompt without a trailing newline.
func (c *Console) Prompt() {
	fmt.Fprint(c.out, "You: ")
}

// Response prints the model's reply, or the error description of a failed exchange.
func (c *Console) Response(m types.Measurement) {
	if m.Succeeded {
		fmt.Fprintf(c.out, "\nAI: %s\n", m.Response)
		return
	}
	fmt.Fprintf(c.out, "\nAI: %s\n", c.err.Render(m.Response))
}

// Metrics prints the performance view of one exchange.
func (c *Console) Metrics(m types.Measurement) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.header.Render("⏱️  Performance Metrics:"))
	fmt.Fprintf(c.out, "   Total Time: %s ms (%.2fs)\n", humanize.Comma(m.ElapsedMillis), m.ElapsedSeconds())

	if m.HasRate() {
		fmt.Fprintf(c.out, "   Est. Tokens: ~%d\n", m.EstimatedTokens)
		fmt.Fprintf(c.out, "   Speed: ~%.1f tokens/sec\n", m.TokensPerSecond())
	}

	fmt.Fprintf(c.out, "   Time: %s - %s\n",
		m.StartTime.Local().Format(clockLayout),
		m.EndTime.Local().Format(clockLayout))
	fmt.Fprintln(c.out)
}

// Stats prints the session statistics view.
func (c *Console) Stats(s types.Statistics) {
	if s.IsEmpty() {
		fmt.Fprintln(c.out, "No requests made yet.")
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.header.Render("📈 Session Statistics:"))
	c.row("Total Requests:", fmt.Sprintf("%d", s.TotalRequests))
	c.row("Successful:", fmt.Sprintf("%d", s.SuccessfulRequests))
	c.row("Failed:", fmt.Sprintf("%d", s.FailedRequests))
	c.row("Average Response Time:", fmt.Sprintf("%.2fs", s.AverageResponseSeconds))
	c.row("Fastest Response:", fmt.Sprintf("%.2fs", s.FastestResponseSeconds))
	c.row("Slowest Response:", fmt.Sprintf("%.2fs", s.SlowestResponseSeconds))
	c.row("Average Speed:", fmt.Sprintf("~%.1f tokens/sec", s.AverageTokensPerSecond))
	c.row("Total Session Time:", fmt.Sprintf("%.1fs", s.TotalSessionSeconds))
	fmt.Fprintln(c.out)
}

// FinalSummary prints the statistics view shown when the session ends.
func (c *Console) FinalSummary(s types.Statistics) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.header.Render("📊 Final Session Summary:"))
	c.Stats(s)
}

// Chart plots the response time of successful exchanges, oldest first.
// Nothing is printed with fewer than two data points.
func (c *Console) Chart(measurements []types.Measurement) {
	data := ResponseSeries(measurements)
	if len(data) < 2 {
		return
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("response time (s) per successful request"),
	)
	fmt.Fprintln(c.out, graph)
	fmt.Fprintln(c.out)
}

// Error prints an error message
func (c *Console) Error(err error) {
	fmt.Fprintln(c.out, c.err.Render(fmt.Sprintf("[ERROR] %v", err)))
}

// Info prints a dimmed informational line.
func (c *Console) Info(msg string) {
	fmt.Fprintln(c.out, c.dim.Render(msg))
}

func (c *Console) row(label, value string) {
	fmt.Fprintln(c.out, "   "+c.label.Render(label)+c.value.Render(value))
}

// ResponseSeries returns the elapsed seconds of successful measurements in order.
func ResponseSeries(measurements []types.Measurement) []float64 {
	var data []float64
	for _, m := range measurements {
		if m.Succeeded {
			data = append(data, m.ElapsedSeconds())
		}
	}
	return data
}
