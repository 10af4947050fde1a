package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/scaii/sky-install/pkg/provision"
	"github.com/scaii/sky-install/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a history store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path: ":memory:", // Use in-memory database for example
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_ListRuns demonstrates recording and listing runs.
func ExampleSQLiteStore_ListRuns() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	_ = store.CreateRun(ctx, &provision.RunRecord{
		ID:        "run-001",
		Command:   "install",
		Branch:    "dev",
		Variant:   "release",
		Status:    provision.StatusSucceeded,
		StartedAt: time.Now(),
	})

	runs, _ := store.ListRuns(ctx, 10)
	for _, r := range runs {
		fmt.Printf("%s %s %s\n", r.ID, r.Command, r.Status)
	}
	// Output: run-001 install succeeded
}
