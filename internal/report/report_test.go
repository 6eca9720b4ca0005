package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNZader/flightcheck/internal/engine"
	"github.com/JNZader/flightcheck/internal/match"
	"github.com/JNZader/flightcheck/internal/rules"
)

func sampleResult() *engine.RunResult {
	return &engine.RunResult{
		Domain:     "bash",
		Version:    "1.0.0",
		Files:      2,
		Applicable: -1,
		Pass:       1,
		Fail:       1,
		Warn:       1,
		Outcomes: []engine.Outcome{
			{
				RuleID: "N1", Title: "No /tmp", Severity: rules.SeverityNever,
				Kind: rules.KindPresence, Status: engine.StatusFail,
				Findings: []match.Finding{{Path: "a.sh", Line: 3, Excerpt: "cat /tmp/x"}},
			},
			{
				RuleID: "M1", Title: "Strict mode", Severity: rules.SeverityMust,
				Kind: rules.KindAbsence, Status: engine.StatusPass, Findings: []match.Finding{},
			},
			{
				RuleID: "S1", Title: "No backticks", Severity: rules.SeverityShould,
				Kind: rules.KindPresence, Status: engine.StatusWarn,
				Findings: []match.Finding{
					{Path: "a.sh", Line: 1, Excerpt: "echo `a`"},
					{Path: "b.sh", Line: match.FileLevel},
				},
			},
		},
		Info: []engine.InfoResult{{ID: "echo", Label: "echo calls", Value: 3}},
	}
}

func TestTextReporter_Golden(t *testing.T) {
	r := NewTextReporter(Options{WarnDetail: 1, Profile: termenv.Ascii})
	got, err := r.Render(sampleResult())
	require.NoError(t, err)

	want := strings.Join([]string{
		separator,
		"  bash Domain Validation",
		separator,
		"",
		"Files: 2",
		"",
		"## NEVER Rules",
		"❌ N1: No /tmp",
		"   a.sh:3: cat /tmp/x",
		"",
		"## MUST Rules",
		"✅ M1: Strict mode",
		"",
		"## SHOULD Rules",
		"⚠️  S1: No backticks",
		"   a.sh:1: echo `a`",
		"   … and 1 more",
		"",
		"## Info",
		"ℹ️  echo calls: 3",
		"",
		separator,
		"  PASS: 1  FAIL: 1  WARN: 1",
		separator,
		"  RESULT: FAIL",
		separator,
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestTextReporter_Skip(t *testing.T) {
	r := NewTextReporter(Options{Profile: termenv.Ascii})
	got, err := r.Render(&engine.RunResult{Domain: "go", Skipped: true, Applicable: -1})
	require.NoError(t, err)
	assert.Contains(t, got, "RESULT: SKIP (no files matched)")
	assert.NotContains(t, got, "PASS:")
}

func TestTextReporter_ApplicableAndVacuous(t *testing.T) {
	res := &engine.RunResult{
		Domain:     "api",
		Files:      1,
		Applicable: 0,
		Pass:       1,
		Outcomes: []engine.Outcome{{
			RuleID: "M1", Title: "Auth", Severity: rules.SeverityMust,
			Status: engine.StatusPass, Vacuous: true,
		}},
		ReadErrors: []*engine.FileReadError{{Path: "blob.bin", Err: engine.ErrBinaryFile}},
	}
	got, err := NewTextReporter(Options{Profile: termenv.Ascii}).Render(res)
	require.NoError(t, err)
	assert.Contains(t, got, "API endpoint files: 0\n")
	assert.Contains(t, got, "✅ M1: Auth (no applicable files)\n")
	assert.Contains(t, got, "## Unreadable files\n   blob.bin: binary file\n")
	assert.Contains(t, got, "RESULT: PASS")
}

func TestTextReporter_ColorIsOptIn(t *testing.T) {
	plain, err := NewTextReporter(Options{Profile: termenv.Ascii}).Render(sampleResult())
	require.NoError(t, err)
	assert.NotContains(t, plain, "\x1b[")

	colored, err := NewTextReporter(Options{Profile: termenv.ANSI256}).Render(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, colored, "\x1b[")
}

func TestReporters_Deterministic(t *testing.T) {
	for _, format := range AvailableFormats() {
		t.Run(format, func(t *testing.T) {
			r, err := NewReporter(format, Options{Profile: termenv.Ascii})
			require.NoError(t, err)
			assert.Equal(t, format, r.Format())

			first, err := r.Render(sampleResult())
			require.NoError(t, err)
			second, err := r.Render(sampleResult())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestJSONReporter(t *testing.T) {
	res := sampleResult()
	res.ReadErrors = []*engine.FileReadError{{Path: "x.sh", Err: engine.ErrFileTooLarge}}

	var buf bytes.Buffer
	require.NoError(t, (&JSONReporter{}).Write(res, &buf))

	var doc struct {
		Domain   string `json:"domain"`
		Verdict  string `json:"verdict"`
		ExitCode int    `json:"exit_code"`
		Outcomes []struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
			Status   string `json:"status"`
		} `json:"outcomes"`
		ReadErrors []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"read_errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "bash", doc.Domain)
	assert.Equal(t, "FAIL", doc.Verdict)
	assert.Equal(t, 1, doc.ExitCode)
	require.Len(t, doc.Outcomes, 3)
	assert.Equal(t, "N1", doc.Outcomes[0].ID)
	assert.Equal(t, "NEVER", doc.Outcomes[0].Severity)
	assert.Equal(t, "fail", doc.Outcomes[0].Status)
	require.Len(t, doc.ReadErrors, 1)
	assert.Equal(t, "file exceeds size limit", doc.ReadErrors[0].Error)
}

func TestSARIFReporter(t *testing.T) {
	r, err := NewReporter("sarif", Options{ToolVersion: "1.2.3"})
	require.NoError(t, err)

	out, err := r.Render(sampleResult())
	require.NoError(t, err)

	var doc sarifReport
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)

	run := doc.Runs[0]
	assert.Equal(t, "flightcheck", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)
	require.Len(t, run.Tool.Driver.Rules, 3)
	require.Len(t, run.Results, 3)

	first := run.Results[0]
	assert.Equal(t, "N1", first.RuleID)
	assert.Equal(t, "error", first.Level)
	assert.Equal(t, "No /tmp: cat /tmp/x", first.Message.Text)
	require.Len(t, first.Locations, 1)
	assert.Equal(t, "a.sh", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, first.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 3, first.Locations[0].PhysicalLocation.Region.StartLine)

	fileLevel := run.Results[2]
	assert.Equal(t, "warning", fileLevel.Level)
	assert.Equal(t, 2, fileLevel.RuleIndex)
	require.Len(t, fileLevel.Locations, 1)
	assert.Nil(t, fileLevel.Locations[0].PhysicalLocation.Region)
}

func TestMarkdownReporter(t *testing.T) {
	r, err := NewReporter("md", Options{WarnDetail: 1})
	require.NoError(t, err)

	out, err := r.Render(sampleResult())
	require.NoError(t, err)

	assert.Contains(t, out, "# bash validation report")
	assert.Contains(t, out, "| FAIL | 2 | 1 | 1 | 1 |")
	assert.Contains(t, out, "| ❌ | N1 | NEVER | No /tmp | 1 |")
	assert.Contains(t, out, "- `a.sh:3`: `cat /tmp/x`")
	assert.Contains(t, out, "- `a.sh:1`: `` echo `a` ``")
	assert.Contains(t, out, "- … and 1 more")
	assert.Contains(t, out, "- echo calls: 3")
}

func TestInlineCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "`plain`"},
		{"a `b` c", "``a `b` c``"},
		{"`x`", "`` `x` ``"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inlineCode(tt.in), tt.in)
	}
}

func TestNewReporter_UnknownFormat(t *testing.T) {
	_, err := NewReporter("xml", Options{})
	assert.ErrorContains(t, err, "unknown format: xml")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTextReporter_WriteError(t *testing.T) {
	err := NewTextReporter(Options{}).Write(sampleResult(), failingWriter{})
	assert.ErrorContains(t, err, "disk full")
}

func TestColorProfile(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, termenv.Ascii, ColorProfile("never", &buf))
	assert.Equal(t, termenv.ANSI256, ColorProfile("always", &buf))
	assert.Equal(t, termenv.Ascii, ColorProfile("auto", &buf), "non-terminal writers are never coloured")
}
