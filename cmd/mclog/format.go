package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// validFormats lists all valid output formats.
var validFormats = map[string]bool{
	"pretty":   true,
	"markdown": true,
	"json":     true,
}

// wrapWidth is the column at which pretty output is wrapped.
const wrapWidth = 80

// report is the outcome of analyzing one input.
type report struct {
	// Source names the input: a file path or "-" for stdin.
	Source string
	Result mclog.Result
	Err    error
}

// jsonReport is the JSON Lines form of a report.
type jsonReport struct {
	Source string `json:"source"`
	mclog.Result
	Errors []string `json:"errors,omitempty"`
}

// outputReport writes a report in the specified format to the writer.
func outputReport(format string, r report, out io.Writer) error {
	switch format {
	case "json":
		return outputJSON(r, out)
	case "markdown":
		return outputMarkdown(r, out)
	case "pretty":
		return outputPretty(r, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// outputJSON writes a report as one JSON line.
func outputJSON(r report, out io.Writer) error {
	data, err := json.Marshal(jsonReport{
		Source: r.Source,
		Result: r.Result,
		Errors: errorStrings(r.Err),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// outputMarkdown writes the messages verbatim under a heading, the way they
// are posted to chat platforms.
func outputMarkdown(r report, out io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", r.Source)
	if facts := factsLine(r.Result); facts != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", facts)
	}
	if len(r.Result.Messages) == 0 {
		sb.WriteString("No known problems found.\n\n")
	}
	for _, msg := range r.Result.Messages {
		sb.WriteString(strings.TrimRight(msg, "\n"))
		sb.WriteString("\n\n")
	}
	for _, e := range errorStrings(r.Err) {
		fmt.Fprintf(&sb, "> error: %s\n\n", e)
	}
	_, err := io.WriteString(out, sb.String())
	return err
}

// prettyStyles holds the styles for one output writer. Colors are only
// emitted when the writer is a terminal.
type prettyStyles struct {
	source  lipgloss.Style
	facts   lipgloss.Style
	title   lipgloss.Style
	problem lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
}

func newPrettyStyles(out io.Writer) prettyStyles {
	r := lipgloss.NewRenderer(out)
	return prettyStyles{
		source:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		facts:   r.NewStyle().Foreground(lipgloss.Color("247")),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		problem: r.NewStyle().Foreground(lipgloss.Color("214")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
		err:     r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// outputPretty writes a report in human-readable form.
func outputPretty(r report, out io.Writer) error {
	st := newPrettyStyles(out)

	var sb strings.Builder
	sb.WriteString(st.source.Render(r.Source))
	sb.WriteByte('\n')
	if facts := factsLine(r.Result); facts != "" {
		sb.WriteString(st.facts.Render(facts))
		sb.WriteByte('\n')
	}

	switch {
	case r.Result.HasProblems:
		sb.WriteString(st.problem.Render(fmt.Sprintf("Problems detected (%d %s)", len(r.Result.Messages), plural(len(r.Result.Messages), "message"))))
	case len(r.Result.Messages) > 0:
		sb.WriteString(st.ok.Render(fmt.Sprintf("No problems, %d %s", len(r.Result.Messages), plural(len(r.Result.Messages), "note"))))
	default:
		sb.WriteString(st.ok.Render("No known problems found."))
	}
	sb.WriteByte('\n')

	for _, msg := range r.Result.Messages {
		sb.WriteByte('\n')
		sb.WriteString(renderMessage(msg, st))
	}
	for _, e := range errorStrings(r.Err) {
		sb.WriteByte('\n')
		sb.WriteString(st.err.Render("error: " + e))
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// renderMessage turns a markdown flavoured message into terminal text.
// Lines that are entirely bold become styled headers; other emphasis
// markers are dropped and the text is wrapped.
func renderMessage(msg string, st prettyStyles) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 4 && strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**") &&
			!strings.Contains(trimmed[2:len(trimmed)-2], "**") {
			sb.WriteString(st.title.Render(trimmed[2 : len(trimmed)-2]))
			sb.WriteByte('\n')
			continue
		}
		plain := strings.ReplaceAll(line, "**", "")
		sb.WriteString(wordwrap.String(plain, wrapWidth))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// factsLine summarises the parsed loader and game version.
func factsLine(res mclog.Result) string {
	var parts []string
	if lv, ok := res.Fields[mclog.FieldLoader].(mclog.LoaderVersion); ok {
		s := "Loader: " + string(lv.Loader)
		if lv.Version != "" {
			s += " " + string(lv.Version)
		}
		parts = append(parts, s)
	}
	if v, ok := res.Fields[mclog.FieldMinecraftVersion].(mclog.Version); ok {
		parts = append(parts, "Minecraft: "+string(v))
	}
	return strings.Join(parts, ", ")
}

// errorStrings flattens a joined error into its parts.
func errorStrings(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, errorStrings(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
