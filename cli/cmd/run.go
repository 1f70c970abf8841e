package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/maxmartens/k2-creek/adapter"
	"github.com/maxmartens/k2-creek/adapter/redis"
	"github.com/maxmartens/k2-creek/adapter/webhook"
	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/cli/config"
	"github.com/maxmartens/k2-creek/cli/render"
	"github.com/maxmartens/k2-creek/k2"
	"github.com/maxmartens/k2-creek/lode"
	"github.com/maxmartens/k2-creek/log"
	"github.com/maxmartens/k2-creek/metrics"
	"github.com/maxmartens/k2-creek/runtime"
	"github.com/maxmartens/k2-creek/types"
)

// RunFlags returns the flags of the run command. The root command
// carries them too, so that a bare `k2-creek` performs a run.
func RunFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file (optional when it does not exist)",
			Value:   config.DefaultPath,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory the artifacts are written to",
		},
		&cli.StringFlag{
			Name:  "k2-url",
			Usage: "Full K2 card data URL, overrides the k2 section of the config",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "K2 request timeout, 0 waits indefinitely",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run ID (default: a fresh UUID)",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON run report to this path (- for stderr)",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress the run summary",
		},
		FormatFlag,
		NoColorFlag,
	}
}

// RunCommand returns the run command.
// This is the only command that writes artifacts.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Fetch card data from K2 and write the artifacts (default command)",
		Flags:  RunFlags(),
		Action: RunAction,
	}
}

// RunAction performs one fetch-and-materialize run. Failures are returned
// as cli.Exit errors carrying the process exit code.
func RunAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return cli.Exit(fmt.Sprintf("unexpected argument %q", c.Args().First()), runtime.ExitCodeConfig)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfig)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfig)
	}

	endpoint := cfg.Endpoint()
	client, err := k2.New(endpoint)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfig)
	}
	defer func() { _ = client.Close() }()

	startTime := time.Now()
	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	runMeta := &types.RunMeta{
		RunID:     runID,
		OutputDir: cfg.Output.Path,
		K2URL:     endpoint.URL(),
	}
	logger := log.NewLogger(runMeta)
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(runID, cfg.Mirror.Backend, cfg.Adapter.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := buildMirror(ctx, cfg.Mirror, runID, startTime)
	if err != nil {
		return cli.Exit(fmt.Sprintf("mirror: %v", err), runtime.ExitCodeConfig)
	}
	if sink != nil {
		sink = lode.NewInstrumentedSink(sink, collector)
		defer func() { _ = sink.Close() }()
	}

	pub, err := buildAdapter(cfg.Adapter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("adapter: %v", err), runtime.ExitCodeConfig)
	}
	if pub != nil {
		pub = adapter.NewInstrumented(pub, collector)
		defer func() { _ = pub.Close() }()
	}

	orchestrator, err := runtime.NewRunOrchestrator(&runtime.RunConfig{
		RunMeta:   runMeta,
		Fetcher:   client,
		Registry:  artifact.New(cfg.Output.Path),
		Sink:      sink,
		Adapter:   pub,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeConfig)
	}

	result, runErr := orchestrator.Execute(ctx)
	report := runtime.BuildRunReport(result, collector.Snapshot())

	if path := c.String("report"); path != "" {
		if err := runtime.WriteRunReport(report, path); err != nil {
			logger.Sugar().Warnf("failed to write run report to %s: %v", path, err)
		}
	}

	if !c.Bool("quiet") {
		if err := r.RenderRows(report, reportRows(report)); err != nil {
			logger.Sugar().Warnf("failed to render run summary: %v", err)
		}
	}

	if runErr != nil {
		return cli.Exit(runErr.Error(), result.ExitCode())
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.String("config"), c.IsSet("config"))
	if err != nil {
		return nil, err
	}

	cfg.Output.Path = resolveString(c, "output", cfg.Output.Path)
	if raw := c.String("k2-url"); raw != "" {
		if err := cfg.SetK2URL(raw); err != nil {
			return nil, err
		}
	}
	if c.IsSet("timeout") {
		cfg.K2.Timeout.Duration = c.Duration("timeout")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildMirror creates the Lode mirror, or nil when no backend is configured.
func buildMirror(ctx context.Context, mc config.MirrorConfig, runID string, startTime time.Time) (lode.ArtifactSink, error) {
	if mc.Backend == "" {
		return nil, nil
	}

	source := mc.Source
	if source == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("mirror source not set and hostname unavailable: %w", err)
		}
		source = host
	}

	cfg := lode.Config{
		Dataset: mc.Dataset,
		Source:  source,
		Day:     lode.DeriveDay(startTime),
		RunID:   runID,
	}

	var client lode.Client
	var err error
	switch mc.Backend {
	case "fs":
		client, err = lode.NewLodeClient(cfg, mc.Path)
	case "s3":
		client, err = lode.NewLodeS3Client(ctx, cfg, s3Config(mc))
	default:
		return nil, fmt.Errorf("unknown mirror backend: %s (must be fs or s3)", mc.Backend)
	}
	if err != nil {
		return nil, err
	}
	return lode.NewSink(client), nil
}

func s3Config(mc config.MirrorConfig) lode.S3Config {
	bucket, prefix := lode.ParseS3Path(mc.Path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       mc.Region,
		Endpoint:     mc.Endpoint,
		UsePathStyle: mc.S3PathStyle,
	}
}

// buildAdapter creates the notification adapter, or nil when no type is
// configured.
func buildAdapter(ac config.AdapterConfig) (adapter.Adapter, error) {
	switch ac.Type {
	case "":
		return nil, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if ac.Retries != nil {
			retries = *ac.Retries
		}
		return webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		retries := redis.DefaultRetries
		if ac.Retries != nil {
			retries = *ac.Retries
		}
		return redis.New(redis.Config{
			URL:          ac.URL,
			Channel:      ac.Channel,
			Encoding:     ac.Encoding,
			LastEventKey: ac.LastEventKey,
			LastEventTTL: ac.LastEventTTL.Duration,
			Timeout:      ac.Timeout.Duration,
			Retries:      retries,
		})
	default:
		return nil, errors.New("unknown adapter type: " + ac.Type + " (must be webhook or redis)")
	}
}

// reportRows lays out the run summary for table output.
func reportRows(report *runtime.RunReport) []render.Row {
	status := render.StatusOK
	switch {
	case report.Outcome.Failed():
		status = render.StatusFail
	case report.Outcome == types.OutcomeNoCard:
		status = render.StatusWarn
	}

	rows := []render.Row{
		render.Section("Run"),
		{Label: "run_id", Value: report.RunID},
		{Label: "outcome", Value: string(report.Outcome), Status: status},
		{Label: "message", Value: report.Message},
		{Label: "stage", Value: report.Stage},
		{Label: "exit_code", Value: strconv.Itoa(report.ExitCode), Status: status},
		{Label: "duration", Value: (time.Duration(report.DurationMs) * time.Millisecond).String()},
		{Label: "k2_url", Value: report.K2URL},
	}
	if report.HTTPStatus != 0 {
		rows = append(rows, render.Row{Label: "http_status", Value: strconv.Itoa(report.HTTPStatus)})
	}

	if doc := report.Result; doc != nil {
		rows = append(rows,
			render.Section("Result"),
			render.Row{Label: "card_type", Value: doc.CardType},
			render.Row{Label: "iccsn", Value: doc.ICCSN},
			render.Row{Label: "error_code", Value: doc.ErrorCode},
			render.Row{Label: "error_text", Value: doc.ErrorText},
			render.Row{Label: "instruction", Value: doc.Instruction},
		)
	}

	rows = append(rows,
		render.Section("Artifacts"),
		render.Row{Label: "output_dir", Value: report.OutputDir},
		render.Row{Label: "written", Value: joinOrNone(report.Artifacts.Written)},
		render.Row{Label: "deleted", Value: joinOrNone(report.Artifacts.Deleted)},
		render.Row{Label: "bytes", Value: strconv.FormatInt(report.Artifacts.Bytes, 10)},
	)

	if report.Mirror.Enabled || report.Publish.Enabled {
		rows = append(rows, render.Section("Hooks"))
		if report.Mirror.Enabled {
			rows = append(rows, hookRow("mirror", report.Mirror))
		}
		if report.Publish.Enabled {
			rows = append(rows, hookRow("publish", report.Publish))
		}
	}
	return rows
}

func hookRow(label string, h runtime.HookStatus) render.Row {
	if h.OK {
		return render.Row{Label: label, Value: "ok", Status: render.StatusOK}
	}
	return render.Row{Label: label, Value: "failed: " + h.Error, Status: render.StatusWarn}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
