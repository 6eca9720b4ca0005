package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/JNZader/flightcheck/internal/engine"
)

// MarkdownReporter generates Markdown reports, suitable for pull request
// comments.
type MarkdownReporter struct {
	opts Options
}

func (r *MarkdownReporter) Format() string { return "markdown" }

func (r *MarkdownReporter) Render(result *engine.RunResult) (string, error) {
	return render(r, result)
}

func (r *MarkdownReporter) Write(result *engine.RunResult, w io.Writer) error {
	p := &printer{w: w}

	p.printf("# %s validation report\n\n", result.Domain)

	if result.Skipped {
		p.printf("**Result:** SKIP (no files matched)\n")
		return p.err
	}

	p.printf("| Result | Files | Pass | Fail | Warn |\n")
	p.printf("|---|---|---|---|---|\n")
	p.printf("| %s | %d | %d | %d | %d |\n\n", result.Verdict(), result.Files, result.Pass, result.Fail, result.Warn)

	if len(result.Outcomes) > 0 {
		p.printf("## Rules\n\n")
		p.printf("| Status | Rule | Severity | Title | Findings |\n")
		p.printf("|---|---|---|---|---|\n")
		for _, o := range result.Outcomes {
			title := o.Title
			if o.Vacuous {
				title += " _(no applicable files)_"
			}
			p.printf("| %s | %s | %s | %s | %d |\n", statusIcon(o.Status), o.RuleID, o.Severity, escapeCell(title), len(o.Findings))
		}
		p.printf("\n")
	}

	var flagged []engine.Outcome
	for _, o := range result.Outcomes {
		if len(o.Findings) > 0 {
			flagged = append(flagged, o)
		}
	}
	if len(flagged) > 0 {
		p.printf("## Findings\n\n")
		for _, o := range flagged {
			p.printf("### %s %s: %s\n\n", statusIcon(o.Status), o.RuleID, o.Title)
			limit := r.opts.detailLimit(o)
			for i, f := range o.Findings {
				if i == limit {
					p.printf("- … and %d more\n", len(o.Findings)-limit)
					break
				}
				switch loc := f.Location(); {
				case loc == "":
					p.printf("- %s\n", f.Excerpt)
				case f.Excerpt == "":
					p.printf("- `%s`\n", loc)
				default:
					p.printf("- `%s`: %s\n", loc, inlineCode(f.Excerpt))
				}
			}
			p.printf("\n")
		}
	}

	if len(result.Info) > 0 {
		p.printf("## Info\n\n")
		for _, info := range result.Info {
			p.printf("- %s: %d\n", info.Label, info.Value)
		}
		p.printf("\n")
	}

	if len(result.ReadErrors) > 0 {
		p.printf("## Unreadable files\n\n")
		for _, e := range result.ReadErrors {
			p.printf("- `%s`: %v\n", e.Path, e.Err)
		}
		p.printf("\n")
	}

	return p.err
}

func statusIcon(s engine.Status) string {
	switch s {
	case engine.StatusFail:
		return "❌"
	case engine.StatusWarn:
		return "⚠️"
	default:
		return "✅"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// inlineCode wraps s in a code span long enough to contain its backticks.
func inlineCode(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fmt.Sprintf("%s %s %s", fence, s, fence)
	}
	return fence + s + fence
}
