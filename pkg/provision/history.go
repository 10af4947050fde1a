package provision

import (
	"context"
	"time"
)

// RunStatus is the final state of a run or step.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
	StatusSkipped   RunStatus = "skipped"
)

// RunRecord is one command invocation.
type RunRecord struct {
	ID         string
	Command    string
	Branch     string
	Variant    string
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StepRecord is one executed pipeline step.
type StepRecord struct {
	RunID     string
	Seq       int
	Name      string
	Component string
	Status    RunStatus
	Attempts  int
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// ArtifactRecord is one staged library.
type ArtifactRecord struct {
	RunID     string
	Component string
	Path      string
	Digest    string
	Size      int64
	CreatedAt time.Time
}

// Recorder persists run history.
type Recorder interface {
	CreateRun(ctx context.Context, run *RunRecord) error
	FinishRun(ctx context.Context, run *RunRecord) error
	CreateStep(ctx context.Context, step *StepRecord) error
	CreateArtifact(ctx context.Context, artifact *ArtifactRecord) error
}
