package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scaii/sky-install/pkg/retry"
	"github.com/scaii/sky-install/pkg/telemetry"
)

// Step is one operation in a command pipeline.
type Step struct {
	Name      string
	Component ComponentID
	// Retry routes the step through the cleanup retry policy.
	Retry bool
	Run   func(ctx context.Context) error
}

// Outcome summarises an executed request.
type Outcome struct {
	RunID   string
	Request Request
	// NothingToDo is set when reinstall finds no installation.
	NothingToDo bool
	Steps       []StepRecord
	Artifacts   []StagedArtifact
}

// Orchestrator maps requests onto pipelines and runs them fail-fast.
type Orchestrator struct {
	installer *Installer
	history   Recorder
	telemetry *telemetry.Telemetry
	retry     retry.Policy

	artifacts []StagedArtifact
}

// NewOrchestrator creates an orchestrator. history may be nil.
func NewOrchestrator(installer *Installer, history Recorder, tel *telemetry.Telemetry) *Orchestrator {
	if tel == nil {
		tel = telemetry.NewNop()
	}
	o := &Orchestrator{
		installer: installer,
		history:   history,
		telemetry: tel,
	}
	o.retry = retry.Default()
	return o
}

// Plan returns the ordered steps for req.
func (o *Orchestrator) Plan(req Request) ([]Step, error) {
	core, backend := mustLookup(Core), mustLookup(Backend)

	switch req.Command {
	case CmdInstall:
		return []Step{
			o.cleanStep(core, CleanAll),
			o.cleanStep(backend, CleanAll),
			o.fetchStep(core, req.Branch),
			o.fetchStep(backend, req.Branch),
			o.buildStep(core, req.Variant),
			o.buildStep(backend, req.Variant),
		}, nil
	case CmdReinstall:
		return []Step{
			{Name: "shallow-clean", Retry: true, Run: o.installer.ShallowClean},
			o.buildStep(core, req.Variant),
			o.buildStep(backend, req.Variant),
		}, nil
	case CmdUninstall:
		return []Step{
			o.cleanStep(core, CleanAll),
			o.cleanStep(backend, CleanAll),
		}, nil
	case CmdGetCore:
		return []Step{o.fetchStep(core, req.Branch)}, nil
	case CmdGetSkyRTS:
		return []Step{o.fetchStep(backend, req.Branch)}, nil
	case CmdBuildCore:
		return []Step{o.buildStep(core, req.Variant)}, nil
	case CmdBuildSkyRTS:
		return []Step{o.buildStep(backend, req.Variant)}, nil
	case CmdCleanCoreAll:
		return []Step{o.cleanStep(core, CleanAll)}, nil
	case CmdCleanCoreBuild:
		return []Step{o.cleanStep(core, CleanBuild)}, nil
	case CmdCleanSkyRTSAll:
		return []Step{o.cleanStep(backend, CleanAll)}, nil
	case CmdCleanSkyRTSBuild:
		return []Step{o.cleanStep(backend, CleanBuild)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, req.Name)
	}
}

func (o *Orchestrator) cleanStep(c Component, scope CleanScope) Step {
	return Step{
		Name:      fmt.Sprintf("clean-%s-%s", c.ID, scope),
		Component: c.ID,
		Retry:     true,
		Run: func(ctx context.Context) error {
			return o.installer.Clean(ctx, c, scope)
		},
	}
}

func (o *Orchestrator) fetchStep(c Component, branch string) Step {
	return Step{
		Name:      "fetch-" + string(c.ID),
		Component: c.ID,
		Run: func(ctx context.Context) error {
			return o.installer.Fetch(ctx, c, branch)
		},
	}
}

func (o *Orchestrator) buildStep(c Component, variant Variant) Step {
	return Step{
		Name:      "build-" + string(c.ID),
		Component: c.ID,
		Run: func(ctx context.Context) error {
			staged, err := o.installer.Build(ctx, c, variant)
			if err != nil {
				return err
			}
			o.artifacts = append(o.artifacts, *staged)
			return nil
		},
	}
}

// Execute runs the pipeline for req. The first failing step aborts the
// rest and its error is returned with the step's message intact.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Outcome, error) {
	outcome := &Outcome{RunID: uuid.New().String(), Request: req}
	timer := telemetry.NewTimer()

	ctx, span := o.telemetry.Tracer.StartCommandSpan(ctx, outcome.RunID, req.Name)
	defer span.End()

	logger := o.telemetry.Logger.WithRunID(outcome.RunID).WithField("command", req.Name)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		logger = logger.WithField("trace_id", traceID)
	}
	ctx = logger.WithContext(ctx)

	if req.Command == CmdReinstall && !o.installer.Layout.InstallRootExists() {
		logger.Info("Installation not found, nothing to reinstall")
		outcome.NothingToDo = true
		now := time.Now().UTC()
		o.record("run", func() error {
			return o.history.CreateRun(ctx, &RunRecord{
				ID:         outcome.RunID,
				Command:    req.Name,
				Branch:     req.Branch,
				Variant:    string(req.Variant),
				Status:     StatusSkipped,
				StartedAt:  now,
				FinishedAt: &now,
			})
		})
		o.telemetry.Metrics.RecordCommand(req.Name, string(StatusSkipped), timer.Duration())
		telemetry.RecordSuccess(span)
		return outcome, nil
	}

	steps, err := o.Plan(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return outcome, err
	}

	run := &RunRecord{
		ID:        outcome.RunID,
		Command:   req.Name,
		Branch:    req.Branch,
		Variant:   string(req.Variant),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	o.record("run", func() error { return o.history.CreateRun(ctx, run) })

	o.artifacts = nil
	var runErr error
	for i, step := range steps {
		rec := o.executeStep(ctx, outcome.RunID, i+1, step)
		outcome.Steps = append(outcome.Steps, rec.StepRecord)
		o.record("step", func() error { return o.history.CreateStep(ctx, &rec.StepRecord) })
		if rec.err != nil {
			runErr = rec.err
			break
		}
	}

	outcome.Artifacts = o.artifacts
	for i := range o.artifacts {
		a := o.artifacts[i]
		o.telemetry.Metrics.SetArtifactSize(string(a.Component), a.Size)
		o.record("artifact", func() error {
			return o.history.CreateArtifact(ctx, &ArtifactRecord{
				RunID:     outcome.RunID,
				Component: string(a.Component),
				Path:      a.Path,
				Digest:    a.Digest,
				Size:      a.Size,
				CreatedAt: time.Now().UTC(),
			})
		})
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = StatusSucceeded
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	o.record("run", func() error { return o.history.FinishRun(ctx, run) })
	o.telemetry.Metrics.RecordCommand(req.Name, string(run.Status), timer.Duration())

	if runErr != nil {
		kind := KindOf(runErr)
		o.telemetry.Metrics.RecordError(string(kind))
		logger.WithError(runErr).WithField("kind", string(kind)).Error("Command failed")
		telemetry.RecordError(span, runErr)
		return outcome, runErr
	}

	logger.WithField("duration", timer.Duration().String()).Info("Command completed")
	telemetry.RecordSuccess(span)
	return outcome, nil
}

type stepResult struct {
	StepRecord
	err error
}

func (o *Orchestrator) executeStep(ctx context.Context, runID string, seq int, step Step) stepResult {
	ctx, span := o.telemetry.Tracer.StartStepSpan(ctx, step.Name, string(step.Component))
	defer span.End()

	logger := o.telemetry.Logger.WithRunID(runID).WithStep(step.Name)
	logger.Debug("Starting step")

	rec := StepRecord{
		RunID:     runID,
		Seq:       seq,
		Name:      step.Name,
		Component: string(step.Component),
		StartedAt: time.Now().UTC(),
	}
	timer := telemetry.NewTimer()

	var err error
	if step.Retry {
		policy := o.retry
		policy.OnRetry = func(attempt int, _ error) {
			o.telemetry.Metrics.RecordRetry(step.Name)
			telemetry.AddEvent(span, "retry", telemetry.AttrAttempt.Int(attempt))
		}
		err = policy.Do(ctx, func(ctx context.Context) error {
			rec.Attempts++
			return step.Run(ctx)
		})
	} else {
		rec.Attempts = 1
		err = step.Run(ctx)
	}

	rec.Duration = timer.Duration()
	if err != nil {
		err = wrap(err, step.Component, step.Name)
		rec.Status = StatusFailed
		rec.Error = err.Error()
		span.SetAttributes(telemetry.AttrErrorKind.String(string(KindOf(err))))
		telemetry.RecordError(span, err)
	} else {
		rec.Status = StatusSucceeded
		telemetry.RecordSuccess(span)
	}
	o.telemetry.Metrics.RecordStep(step.Name, string(rec.Status), rec.Duration)
	logger.WithField("status", string(rec.Status)).Debug("Step finished")

	return stepResult{StepRecord: rec, err: err}
}

// record writes history, logging instead of failing the run.
func (o *Orchestrator) record(what string, fn func() error) {
	if o.history == nil {
		return
	}
	if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
		o.telemetry.Logger.WithError(err).Warnf("Failed to record %s history", what)
	}
}
