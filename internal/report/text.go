package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/JNZader/flightcheck/internal/engine"
	"github.com/JNZader/flightcheck/internal/rules"
)

const separator = "═══════════════════════════════════════════"

// TextReporter generates the terminal report.
type TextReporter struct {
	opts   Options
	styles *Styles
}

// NewTextReporter creates a text reporter.
func NewTextReporter(opts Options) *TextReporter {
	opts = opts.withDefaults()
	return &TextReporter{opts: opts, styles: NewStyles(opts.Profile)}
}

func (r *TextReporter) Format() string { return "text" }

func (r *TextReporter) Render(result *engine.RunResult) (string, error) {
	return render(r, result)
}

func (r *TextReporter) Write(result *engine.RunResult, w io.Writer) error {
	p := &printer{w: w}
	s := r.styles

	p.line(s.Muted.Render(separator))
	p.line("  " + s.Header.Render(result.Domain+" Domain Validation"))
	p.line(s.Muted.Render(separator))
	p.line("")

	if result.Skipped {
		p.line("RESULT: " + s.Warning.Render("SKIP") + " (no files matched)")
		return p.err
	}

	p.printf("Files: %d\n", result.Files)
	if result.Applicable >= 0 {
		p.printf("API endpoint files: %d\n", result.Applicable)
	}
	p.line("")

	for _, sev := range rules.Severities() {
		outcomes := result.BySeverity(sev)
		if len(outcomes) == 0 {
			continue
		}
		p.line(s.Section.Render("## " + sev.String() + " Rules"))
		for _, o := range outcomes {
			r.writeOutcome(p, o)
		}
		p.line("")
	}

	if len(result.Info) > 0 {
		p.line(s.Section.Render("## Info"))
		for _, info := range result.Info {
			p.printf("ℹ️  %s: %s\n", info.Label, s.Info.Render(fmt.Sprint(info.Value)))
		}
		p.line("")
	}

	if len(result.ReadErrors) > 0 {
		p.line(s.Section.Render("## Unreadable files"))
		for _, e := range result.ReadErrors {
			p.line("   " + s.Muted.Render(e.Error()))
		}
		p.line("")
	}

	p.line(s.Muted.Render(separator))
	p.printf("  PASS: %s  FAIL: %s  WARN: %s\n",
		s.Success.Render(fmt.Sprint(result.Pass)),
		s.Error.Render(fmt.Sprint(result.Fail)),
		s.Warning.Render(fmt.Sprint(result.Warn)))
	p.line(s.Muted.Render(separator))
	verdict := s.Success.Render("PASS")
	if !result.Passed() {
		verdict = s.Error.Render("FAIL")
	}
	p.line("  RESULT: " + verdict)
	p.line(s.Muted.Render(separator))

	return p.err
}

func (r *TextReporter) writeOutcome(p *printer, o engine.Outcome) {
	s := r.styles
	label := s.Bold.Render(o.RuleID) + ": " + o.Title

	switch o.Status {
	case engine.StatusPass:
		suffix := ""
		if o.Vacuous {
			suffix = " " + s.Muted.Render("(no applicable files)")
		}
		p.line("✅ " + label + suffix)
		return
	case engine.StatusFail:
		p.line("❌ " + label)
	default:
		p.line("⚠️  " + label)
	}

	limit := r.opts.detailLimit(o)
	for i, f := range o.Findings {
		if i == limit {
			p.line("   " + s.Muted.Render(fmt.Sprintf("… and %d more", len(o.Findings)-limit)))
			break
		}
		p.line("   " + strings.TrimRight(f.String(), " "))
	}
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}
