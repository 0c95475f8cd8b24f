package db

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/clipbot/clip"
	"github.com/onnwee/clipbot/testutil"
)

func TestConnectEmptyDSN(t *testing.T) {
	if _, err := Connect(""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, database); err != nil {
			t.Fatalf("Migrate() run %d: %v", i+1, err)
		}
	}
}

func TestRunMigrations(t *testing.T) {
	database := testutil.SetupTestDB(t)
	if err := RunMigrations(context.Background(), database); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	// second run is a no-op
	if err := RunMigrations(context.Background(), database); err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
	version, dirty, err := GetMigrationVersion(context.Background(), database)
	if err != nil {
		t.Fatalf("GetMigrationVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 false", version, dirty)
	}
}

func TestRecordAndListClips(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	if err := RunMigrations(context.Background(), database); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	store := NewStore(database)

	t0 := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	first := clip.New("vid1", "alice", "!clip first", t0.Add(65*time.Second), t0, clip.DefaultPad)
	second := clip.New("vid1", "bob", "!clip", t0.Add(200*time.Second), t0, clip.DefaultPad)
	for _, c := range []clip.Clip{first, second} {
		if err := store.RecordClip(ctx, c); err != nil {
			t.Fatalf("RecordClip() error = %v", err)
		}
	}

	rows, err := store.RecentClips(ctx, 10)
	if err != nil {
		t.Fatalf("RecentClips() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Author != "bob" || rows[0].Title != clip.UntitledClip {
		t.Errorf("newest row = %+v", rows[0])
	}
	if rows[1].Start != 35 || rows[1].End != 95 || rows[1].Link != "https://youtu.be/vid1?t=35" {
		t.Errorf("oldest row = %+v", rows[1])
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if v, dirty, err := store.SchemaVersion(ctx); err != nil || v != 1 || dirty {
		t.Errorf("SchemaVersion() = %d %v %v, want 1 false nil", v, dirty, err)
	}
	// the pool stays usable after the version check released its connection
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() after SchemaVersion error = %v", err)
	}
}
