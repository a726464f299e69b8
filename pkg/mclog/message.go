package mclog

import "strings"

// Diagnostic is a structured human-facing message.
//
// Rendered form (markdown flavoured, as chat platforms display it):
//
//	**Title**
//	Summary
//
//	**How to fix:**
//	• fix one
//	• fix two
//
//	**Example:** `example`
type Diagnostic struct {
	// Title is rendered as a bold header line.
	Title string

	// Summary explains what happened. It should quote values captured from
	// the log verbatim.
	Summary string

	// FixHeading adds a "How to fix:" line before Fixes.
	FixHeading bool

	// Fixes is the bullet list of guidance.
	Fixes []string

	// Compact puts Fixes directly under Summary without a blank line.
	Compact bool

	// Example is rendered as inline code after the fixes.
	Example string
}

// Bullet prefixes each entry of Diagnostic.Fixes.
const Bullet = "• "

// String renders the diagnostic.
func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString("**")
	sb.WriteString(d.Title)
	sb.WriteString("** \n")

	if d.Summary != "" {
		sb.WriteString(d.Summary)
		sb.WriteByte('\n')
	}

	if len(d.Fixes) > 0 {
		if d.Summary != "" && !d.Compact {
			sb.WriteByte('\n')
		}
		if d.FixHeading {
			sb.WriteString("**How to fix:**\n")
		}
		for i, fix := range d.Fixes {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(Bullet)
			sb.WriteString(fix)
		}
		sb.WriteByte('\n')
	}

	if d.Example != "" {
		sb.WriteString("\n**Example:** `")
		sb.WriteString(d.Example)
		sb.WriteString("`\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
