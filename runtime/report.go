package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/maxmartens/k2-creek/iox"
	"github.com/maxmartens/k2-creek/materialize"
	"github.com/maxmartens/k2-creek/metrics"
	"github.com/maxmartens/k2-creek/types"
)

// RunReport is the structured summary of a run, rendered by the CLI and
// written by --report.
type RunReport struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	Outcome    types.OutcomeStatus `json:"outcome" yaml:"outcome"`
	Message    string              `json:"message" yaml:"message"`
	Stage      string              `json:"stage" yaml:"stage"`
	ExitCode   int                 `json:"exit_code" yaml:"exit_code"`
	DurationMs int64               `json:"duration_ms" yaml:"duration_ms"`
	K2URL      string              `json:"k2_url" yaml:"k2_url"`
	HTTPStatus int                 `json:"http_status,omitempty" yaml:"http_status,omitempty"`
	OutputDir  string              `json:"output_dir" yaml:"output_dir"`

	Result    *materialize.ResultDocument `json:"result,omitempty" yaml:"result,omitempty"`
	Artifacts *ReportArtifacts            `json:"artifacts" yaml:"artifacts"`
	Mirror    HookStatus                  `json:"mirror" yaml:"mirror"`
	Publish   HookStatus                  `json:"publish" yaml:"publish"`
	Metrics   *metrics.Snapshot           `json:"metrics" yaml:"metrics"`
}

// ReportArtifacts lists the files a run touched.
type ReportArtifacts struct {
	Written []string `json:"written" yaml:"written"`
	Deleted []string `json:"deleted" yaml:"deleted"`
	Bytes   int64    `json:"bytes" yaml:"bytes"`
}

// BuildRunReport composes a RunReport from a RunResult and metrics snapshot.
func BuildRunReport(result *RunResult, snap metrics.Snapshot) *RunReport {
	written, deleted := result.Written, result.Deleted
	if written == nil {
		written = []string{}
	}
	if deleted == nil {
		deleted = []string{}
	}
	return &RunReport{
		RunID:      result.RunMeta.RunID,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		Stage:      result.Stage.String(),
		ExitCode:   result.ExitCode(),
		DurationMs: result.Duration.Milliseconds(),
		K2URL:      result.RunMeta.K2URL,
		HTTPStatus: result.StatusCode,
		OutputDir:  result.RunMeta.OutputDir,
		Result:     result.Document,
		Artifacts: &ReportArtifacts{
			Written: written,
			Deleted: deleted,
			Bytes:   result.BytesWritten,
		},
		Mirror:  result.Mirror,
		Publish: result.Publish,
		Metrics: &snap,
	}
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
