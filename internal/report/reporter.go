// Package report renders run results as text, JSON, SARIF or Markdown.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/JNZader/flightcheck/internal/engine"
)

// Default detail limits: how many findings are listed per failed or
// warning rule before the rest is summarised.
const (
	DefaultFailDetail = 10
	DefaultWarnDetail = 5
)

// Reporter defines the interface for rendering run results. Rendering is
// pure: the same result always yields the same bytes.
type Reporter interface {
	// Render creates a report from a run result.
	Render(result *engine.RunResult) (string, error)

	// Write writes the report to a writer.
	Write(result *engine.RunResult, w io.Writer) error

	// Format returns the format name.
	Format() string
}

// Options configures reporters. Zero values select defaults.
type Options struct {
	FailDetail int
	WarnDetail int

	// Profile selects the colour depth of text reports; termenv.Ascii
	// disables styling.
	Profile termenv.Profile

	ToolName    string
	ToolVersion string
}

func (o Options) withDefaults() Options {
	if o.FailDetail <= 0 {
		o.FailDetail = DefaultFailDetail
	}
	if o.WarnDetail <= 0 {
		o.WarnDetail = DefaultWarnDetail
	}
	if o.ToolName == "" {
		o.ToolName = "flightcheck"
	}
	if o.ToolVersion == "" {
		o.ToolVersion = "dev"
	}
	return o
}

// NewReporter creates a reporter for the given format.
func NewReporter(format string, opts Options) (Reporter, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextReporter(opts), nil
	case "markdown", "md":
		return &MarkdownReporter{opts: opts}, nil
	case "json":
		return &JSONReporter{Indent: true}, nil
	case "sarif":
		return &SARIFReporter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (available: %s)", format, strings.Join(AvailableFormats(), ", "))
	}
}

// AvailableFormats returns the list of supported formats.
func AvailableFormats() []string {
	return []string{"text", "json", "sarif", "markdown"}
}

func render(r Reporter, result *engine.RunResult) (string, error) {
	var sb strings.Builder
	if err := r.Write(result, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// detailLimit returns how many findings of an outcome are listed.
func (o Options) detailLimit(out engine.Outcome) int {
	if out.Status == engine.StatusWarn {
		return o.WarnDetail
	}
	return o.FailDetail
}
