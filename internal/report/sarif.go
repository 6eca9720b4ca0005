package report

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/JNZader/flightcheck/internal/engine"
	"github.com/JNZader/flightcheck/internal/rules"
)

// SARIFReporter generates SARIF 2.1.0 reports.
type SARIFReporter struct {
	opts Options
}

func (r *SARIFReporter) Format() string { return "sarif" }

// SARIF types
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
	DefaultConfig    struct {
		Level string `json:"level"`
	} `json:"defaultConfiguration"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation struct {
		ArtifactLocation struct {
			URI string `json:"uri"`
		} `json:"artifactLocation"`
		Region *sarifRegion `json:"region,omitempty"`
	} `json:"physicalLocation"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func (r *SARIFReporter) Render(result *engine.RunResult) (string, error) {
	return render(r, result)
}

func (r *SARIFReporter) Write(result *engine.RunResult, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.buildReport(result))
}

func (r *SARIFReporter) buildReport(result *engine.RunResult) *sarifReport {
	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:    r.opts.ToolName,
				Version: r.opts.ToolVersion,
			},
		},
		Results: []sarifResult{},
	}

	for i, o := range result.Outcomes {
		sr := sarifRule{
			ID:               o.RuleID,
			Name:             o.Title,
			ShortDescription: sarifMessage{Text: o.Title},
		}
		sr.DefaultConfig.Level = mapLevel(o.Severity)
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sr)

		for _, f := range o.Findings {
			res := sarifResult{
				RuleID:    o.RuleID,
				RuleIndex: i,
				Level:     mapLevel(o.Severity),
				Message:   sarifMessage{Text: o.Title},
			}
			if f.Excerpt != "" {
				res.Message.Text = o.Title + ": " + f.Excerpt
			}
			if f.Path != "" {
				loc := sarifLocation{}
				loc.PhysicalLocation.ArtifactLocation.URI = filepath.ToSlash(f.Path)
				if f.Line > 0 {
					loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line}
				}
				res.Locations = append(res.Locations, loc)
			}
			run.Results = append(run.Results, res)
		}
	}

	return &sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
}

func mapLevel(severity rules.Severity) string {
	switch {
	case severity.Hard():
		return "error"
	case severity == rules.SeverityShould:
		return "warning"
	default:
		return "note"
	}
}
