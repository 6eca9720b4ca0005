package report

import (
	"encoding/json"
	"io"

	"github.com/JNZader/flightcheck/internal/engine"
)

// JSONReporter generates JSON reports.
type JSONReporter struct {
	Indent bool
}

// jsonReport adds the derived verdict and exit code to the result.
type jsonReport struct {
	*engine.RunResult
	Verdict  string `json:"verdict"`
	ExitCode int    `json:"exit_code"`
}

func (r *JSONReporter) Format() string { return "json" }

func (r *JSONReporter) Render(result *engine.RunResult) (string, error) {
	return render(r, result)
}

func (r *JSONReporter) Write(result *engine.RunResult, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if r.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(jsonReport{
		RunResult: result,
		Verdict:   result.Verdict(),
		ExitCode:  result.ExitCode(),
	})
}
