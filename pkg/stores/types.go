package stores

import (
	"context"
	"time"

	"github.com/scaii/sky-install/pkg/provision"
)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// HistoryStore is the read and write surface of run history.
type HistoryStore interface {
	provision.Recorder

	GetRun(ctx context.Context, id string) (*provision.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*provision.RunRecord, error)
	ListSteps(ctx context.Context, runID string) ([]*provision.StepRecord, error)
	ListArtifacts(ctx context.Context, runID string) ([]*provision.ArtifactRecord, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

var _ HistoryStore = (*SQLiteStore)(nil)
