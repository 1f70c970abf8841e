package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/cli/config"
	"github.com/maxmartens/k2-creek/cli/render"
	"github.com/maxmartens/k2-creek/lode"
	"github.com/maxmartens/k2-creek/materialize"
	"github.com/maxmartens/k2-creek/types"
)

// ArtifactStatus reports one artifact file of the output directory.
type ArtifactStatus struct {
	Kind     string `json:"kind" yaml:"kind"`
	Filename string `json:"filename" yaml:"filename"`
	Present  bool   `json:"present" yaml:"present"`
}

// InspectResponse is the response for inspect on the output directory.
type InspectResponse struct {
	OutputDir string                      `json:"output_dir" yaml:"output_dir"`
	Result    *materialize.ResultDocument `json:"result" yaml:"result"`
	Artifacts []ArtifactStatus            `json:"artifacts" yaml:"artifacts"`
}

// InspectCommand returns the inspect command.
// Inspect is read-only: it never contacts K2 or touches the artifacts.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the artifacts of the last run, or its record in the mirror",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory the artifacts were written to",
			},
			&cli.BoolFlag{
				Name:  "from-mirror",
				Usage: "Read the latest run record from the configured Lode mirror",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID to look up with --from-mirror (default: latest)",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source to look up with --from-mirror (default: any)",
			},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	cfg, err := config.LoadOrDefault(c.String("config"), c.IsSet("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("from-mirror") {
		record, err := inspectMirror(c.Context, cfg.Mirror, c.String("run-id"), c.String("source"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return r.RenderRows(record, recordRows(record))
	}

	resp, err := inspectOutputDir(resolveString(c, "output", cfg.Output.Path))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.RenderRows(resp, inspectRows(resp))
}

// inspectOutputDir reads Result.xml and checks which artifacts exist.
// A missing Result.xml yields a nil Result.
func inspectOutputDir(dir string) (*InspectResponse, error) {
	reg := artifact.New(dir)
	resp := &InspectResponse{OutputDir: dir}

	for _, kind := range types.AllArtifactKinds() {
		present, err := reg.Exists(kind)
		if err != nil {
			return nil, err
		}
		resp.Artifacts = append(resp.Artifacts, ArtifactStatus{
			Kind:     kind.String(),
			Filename: types.MustFilename(kind),
			Present:  present,
		})
	}

	data, err := reg.Read(types.ArtifactResultSummary)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return resp, nil
	case err != nil:
		return nil, err
	}
	doc, err := materialize.ParseResult(data)
	if err != nil {
		return nil, err
	}
	resp.Result = doc
	return resp, nil
}

// inspectMirror returns the latest run record in the mirror.
func inspectMirror(ctx context.Context, mc config.MirrorConfig, runID, source string) (map[string]any, error) {
	if mc.Path == "" {
		return nil, errors.New("--from-mirror requires a mirror section in the config")
	}

	dataset := mc.Dataset
	if dataset == "" {
		dataset = lode.DefaultDataset
	}

	var ds lode.Dataset
	var err error
	switch mc.Backend {
	case "fs":
		ds, err = lode.NewReadDatasetFS(dataset, mc.Path)
	case "s3":
		ds, err = lode.NewReadDatasetS3(ctx, dataset, s3Config(mc))
	default:
		err = fmt.Errorf("unknown mirror backend: %q (must be fs or s3)", mc.Backend)
	}
	if err != nil {
		return nil, err
	}
	return lode.QueryLatestRun(ctx, ds, runID, source)
}

func inspectRows(resp *InspectResponse) []render.Row {
	rows := []render.Row{
		render.Section("Result"),
		{Label: "output_dir", Value: resp.OutputDir},
	}
	if doc := resp.Result; doc != nil {
		rows = append(rows,
			render.Row{Label: "card_type", Value: doc.CardType},
			render.Row{Label: "iccsn", Value: doc.ICCSN},
			render.Row{Label: "error_code", Value: doc.ErrorCode},
			render.Row{Label: "error_text", Value: doc.ErrorText},
			render.Row{Label: "instruction", Value: doc.Instruction},
		)
	} else {
		rows = append(rows, render.Row{Label: "result", Value: "missing", Status: render.StatusWarn})
	}

	rows = append(rows, render.Section("Artifacts"))
	for _, a := range resp.Artifacts {
		row := render.Row{Label: a.Filename, Value: "absent"}
		if a.Present {
			row.Value, row.Status = "present", render.StatusOK
		}
		rows = append(rows, row)
	}
	return rows
}

func recordRows(record map[string]any) []render.Row {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := []render.Row{render.Section("Run record")}
	for _, k := range keys {
		rows = append(rows, render.Row{Label: k, Value: fmt.Sprint(record[k])})
	}
	return rows
}
