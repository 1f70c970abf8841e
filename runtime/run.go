package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxmartens/k2-creek/adapter"
	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/k2"
	"github.com/maxmartens/k2-creek/lode"
	"github.com/maxmartens/k2-creek/log"
	"github.com/maxmartens/k2-creek/materialize"
	"github.com/maxmartens/k2-creek/metrics"
	"github.com/maxmartens/k2-creek/types"
)

// hookTimeout bounds the mirror and notification after the main run.
const hookTimeout = 30 * time.Second

// Fetcher performs the K2 request. *k2.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (*k2.RawResponse, error)
}

// RunConfig configures a single run.
type RunConfig struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Fetcher queries K2 (required).
	Fetcher Fetcher
	// FailureHandler handles non-JSON replies.
	// If nil, k2.DefaultFailureHandler is used.
	FailureHandler k2.FailureHandler
	// Registry is the output directory (required).
	Registry *artifact.Registry
	// Sink mirrors artifacts and the run record. Optional.
	Sink lode.ArtifactSink
	// Adapter publishes the card read event. Optional.
	Adapter adapter.Adapter
	// Logger defaults to a logger carrying RunMeta.
	Logger *log.Logger
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
}

// HookStatus describes the result of an optional post-run step.
type HookStatus struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	OK      bool   `json:"ok" yaml:"ok"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunResult represents the result of a run.
type RunResult struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Outcome is the run outcome.
	Outcome *types.RunOutcome
	// Stage is the last stage reached; StageDone on success.
	Stage Stage
	// StatusCode is the HTTP status of the K2 reply, 0 if none arrived.
	StatusCode int
	// JSON reports whether the reply was a JSON body.
	JSON bool
	// Document is the content of Result.xml, nil if it was not written.
	Document *materialize.ResultDocument
	// Written lists the filenames written, in write order.
	Written []string
	// Deleted lists the stale filenames removed.
	Deleted []string
	// BytesWritten is the total size of the written artifacts.
	BytesWritten int64
	// Mirror is the status of the Lode mirror.
	Mirror HookStatus
	// Publish is the status of the notification.
	Publish HookStatus
	// Duration is the total run duration.
	Duration time.Duration
	// StartedAt is the run start time.
	StartedAt time.Time
}

// ExitCode is the process exit code for the result.
func (r *RunResult) ExitCode() int {
	return ExitCode(r.Outcome.Status)
}

// RunOrchestrator orchestrates a single run.
type RunOrchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	startTime time.Time
	stage     Stage
}

// NewRunOrchestrator creates a new run orchestrator.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	switch {
	case config == nil:
		return nil, errors.New("run config is required")
	case config.RunMeta == nil || config.RunMeta.RunID == "":
		return nil, errors.New("run metadata with a run ID is required")
	case config.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case config.Registry == nil:
		return nil, errors.New("artifact registry is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunMeta)
	}
	if config.FailureHandler == nil {
		config.FailureHandler = k2.DefaultFailureHandler{}
	}

	return &RunOrchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Stage returns the current stage.
func (r *RunOrchestrator) Stage() Stage {
	return r.stage
}

// Execute runs the state machine to completion.
//
// The result is always non-nil. A fatal error is returned as *StageError
// alongside a result describing the failure. Mirror and notification
// failures are reported in the result but never returned.
func (r *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	r.startTime = time.Now()
	result := &RunResult{RunMeta: r.config.RunMeta, StartedAt: r.startTime}

	r.logger.Info("starting run", map[string]any{
		"k2_url": r.config.RunMeta.K2URL,
	})

	report, err := r.run(ctx, result)
	if report != nil {
		result.Document = report.Result
		result.Written = report.WrittenFiles()
		result.Deleted = report.DeletedFiles()
		result.BytesWritten = report.BytesWritten
	}
	result.Stage = r.stage
	result.Outcome = DetermineOutcome(err, report != nil && report.CardData)

	if err != nil {
		r.logger.Error("run failed", map[string]any{
			"stage":   r.stage.String(),
			"outcome": string(result.Outcome.Status),
			"error":   err.Error(),
		})
	}

	r.runHooks(ctx, result, report)

	result.Duration = time.Since(r.startTime)
	r.logger.Info("run completed", map[string]any{
		"outcome":  string(result.Outcome.Status),
		"written":  len(result.Written),
		"deleted":  len(result.Deleted),
		"duration": result.Duration.String(),
	})

	return result, err
}

func (r *RunOrchestrator) run(ctx context.Context, result *RunResult) (*materialize.Report, error) {
	r.stage = StageFetching
	raw, err := r.config.Fetcher.Fetch(ctx)
	if err != nil {
		r.config.Collector.IncFetchFailure()
		return nil, r.fail(err)
	}
	r.config.Collector.IncFetchSuccess()
	result.StatusCode = raw.StatusCode
	result.JSON = raw.IsJSON()

	r.stage = StageParsing
	env, err := r.parse(raw)
	if err != nil {
		return nil, r.fail(err)
	}

	r.stage = StageClassifying
	plan, err := materialize.NewPlan(env)
	if err != nil {
		return nil, r.fail(err)
	}
	r.logger.Debug("classified response", map[string]any{
		"card_data": plan.CardData,
		"artifacts": len(plan.Artifacts),
	})

	r.stage = StageMaterializing
	m := materialize.New(r.config.Registry,
		materialize.WithLogger(r.logger),
		materialize.WithMetrics(r.config.Collector),
	)
	report, err := m.Apply(plan)
	if err != nil {
		return report, r.fail(err)
	}

	r.stage = StageDone
	return report, nil
}

func (r *RunOrchestrator) parse(raw *k2.RawResponse) (*types.Envelope, error) {
	if raw.IsJSON() {
		r.config.Collector.IncJSONResponse()
		env, err := k2.Decode(raw)
		if err != nil {
			r.config.Collector.IncParseFailure()
			return nil, err
		}
		return env, nil
	}

	r.config.Collector.IncNonJSONResponse()
	r.logger.Warn("non-JSON response from K2", map[string]any{
		"status":       raw.StatusCode,
		"content_type": raw.ContentType(),
	})
	return r.config.FailureHandler.HandleFailure(raw)
}

func (r *RunOrchestrator) fail(err error) error {
	return &StageError{Stage: r.stage, Err: err}
}

// runHooks mirrors and publishes the run. The artifacts are mirrored only
// when the run reached StageDone; the run record and the event are sent
// for every outcome.
func (r *RunOrchestrator) runHooks(ctx context.Context, result *RunResult, report *materialize.Report) {
	// Hooks still run when the main context was canceled mid-run.
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	if sink := r.config.Sink; sink != nil {
		result.Mirror.Enabled = true
		err := r.mirror(hookCtx, sink, result, report)
		result.Mirror.OK = err == nil
		if err != nil {
			result.Mirror.Error = err.Error()
			r.logger.Warn("mirror failed", map[string]any{"error": err.Error()})
		}
	}

	if a := r.config.Adapter; a != nil {
		result.Publish.Enabled = true
		err := a.Publish(hookCtx, r.buildEvent(result))
		result.Publish.OK = err == nil
		if err != nil {
			result.Publish.Error = err.Error()
			r.logger.Warn("publish failed", map[string]any{"error": err.Error()})
		}
	}
}

func (r *RunOrchestrator) mirror(ctx context.Context, sink lode.ArtifactSink, result *RunResult, report *materialize.Report) error {
	var errs []error
	if r.stage == StageDone && report != nil {
		if err := sink.WriteArtifacts(ctx, r.config.Registry, report.Written); err != nil {
			errs = append(errs, err)
		}
	}
	if err := sink.WriteRun(ctx, r.buildRunRecord(result)); err != nil {
		errs = append(errs, fmt.Errorf("run record: %w", err))
	}
	return errors.Join(errs...)
}

func (r *RunOrchestrator) buildRunRecord(result *RunResult) *lode.RunRecord {
	rec := &lode.RunRecord{
		ContractVersion: types.ContractVersion,
		RunID:           result.RunMeta.RunID,
		Outcome:         string(result.Outcome.Status),
		Artifacts:       result.Written,
		BytesWritten:    result.BytesWritten,
		DurationMs:      time.Since(r.startTime).Milliseconds(),
		Ts:              r.startTime,
	}
	if doc := result.Document; doc != nil {
		rec.CardType = doc.CardType
		rec.ICCSN = doc.ICCSN
		rec.ErrorCode = doc.ErrorCode
		rec.ErrorText = doc.ErrorText
	}
	return rec
}

func (r *RunOrchestrator) buildEvent(result *RunResult) *adapter.CardReadEvent {
	event := &adapter.CardReadEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeCardRead,
		RunID:           result.RunMeta.RunID,
		Outcome:         string(result.Outcome.Status),
		Artifacts:       result.Written,
		OutputDir:       r.config.Registry.Dir(),
		Timestamp:       r.startTime.UTC().Format(time.RFC3339),
		DurationMs:      time.Since(r.startTime).Milliseconds(),
	}
	if event.Artifacts == nil {
		event.Artifacts = []string{}
	}
	if doc := result.Document; doc != nil {
		event.CardType = doc.CardType
		event.ICCSN = doc.ICCSN
		event.ErrorCode = doc.ErrorCode
		event.ErrorText = doc.ErrorText
	} else {
		event.ErrorText = result.Outcome.Message
	}
	return event
}
