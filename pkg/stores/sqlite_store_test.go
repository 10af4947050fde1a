package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/scaii/sky-install/pkg/provision"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newRun(id string, started time.Time) *provision.RunRecord {
	return &provision.RunRecord{
		ID:        id,
		Command:   "install",
		Branch:    "dev",
		Variant:   "release",
		Status:    provision.StatusRunning,
		StartedAt: started,
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	// Running migrations again is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"runs", "steps", "artifacts"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	run := newRun("run-1", started)
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != provision.StatusRunning || got.FinishedAt != nil {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	finished := started.Add(time.Minute)
	run.Status = provision.StatusFailed
	run.Error = "fatal: repository not found"
	run.FinishedAt = &finished
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != provision.StatusFailed || got.Error != run.Error {
		t.Errorf("run = %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun() error = %v, want ErrNotFound", err)
	}
	err = store.FinishRun(context.Background(), &provision.RunRecord{ID: "missing", Status: provision.StatusSucceeded})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishRun() error = %v, want ErrNotFound", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"a", "b", "c"} {
		if err := store.CreateRun(ctx, newRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListRuns() = %v", runIDs(runs))
	}
}

func runIDs(runs []*provision.RunRecord) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func TestStepsAndArtifacts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := store.CreateRun(ctx, newRun("run-1", now)); err != nil {
		t.Fatal(err)
	}

	steps := []*provision.StepRecord{
		{RunID: "run-1", Seq: 2, Name: "fetch-core", Component: "core", Status: provision.StatusSucceeded, Attempts: 1, StartedAt: now, Duration: 1500 * time.Millisecond},
		{RunID: "run-1", Seq: 1, Name: "clean-core-all", Component: "core", Status: provision.StatusSucceeded, Attempts: 2, StartedAt: now},
	}
	for _, s := range steps {
		if err := store.CreateStep(ctx, s); err != nil {
			t.Fatalf("CreateStep() error = %v", err)
		}
	}

	got, err := store.ListSteps(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListSteps() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "clean-core-all" || got[1].Name != "fetch-core" {
		t.Fatalf("ListSteps() order wrong: %+v", got)
	}
	if got[0].Attempts != 2 || got[1].Duration != 1500*time.Millisecond {
		t.Errorf("step fields = %+v, %+v", got[0], got[1])
	}

	artifact := &provision.ArtifactRecord{RunID: "run-1", Component: "core", Path: "/h/.scaii/bin/libscaii_core.so", Digest: "ab12", Size: 42, CreatedAt: now}
	if err := store.CreateArtifact(ctx, artifact); err != nil {
		t.Fatalf("CreateArtifact() error = %v", err)
	}
	artifacts, err := store.ListArtifacts(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].Digest != "ab12" || artifacts[0].Size != 42 {
		t.Errorf("ListArtifacts() = %+v", artifacts)
	}
}

func TestStepRequiresRun(t *testing.T) {
	store := setupTestStore(t)
	err := store.CreateStep(context.Background(), &provision.StepRecord{RunID: "nope", Seq: 1, Name: "x", Status: provision.StatusFailed, StartedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestPruneRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"old", "mid", "new"} {
		if err := store.CreateRun(ctx, newRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.CreateStep(ctx, &provision.StepRecord{RunID: "old", Seq: 1, Name: "fetch-core", Status: provision.StatusSucceeded, StartedAt: base}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.PruneRuns(ctx, 2)
	if err != nil {
		t.Fatalf("PruneRuns() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.GetRun(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old run still present: %v", err)
	}
	steps, err := store.ListSteps(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 0 {
		t.Errorf("steps of pruned run remain: %d", len(steps))
	}
}
