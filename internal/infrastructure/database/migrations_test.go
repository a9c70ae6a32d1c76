package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

const testMigrationsDir = "testdata"

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useMigrations swaps the package migration source for the test.
func useMigrations(t *testing.T, fsys embed.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, dir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_frames") {
		t.Fatal("table test_frames not created")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 0 {
		t.Errorf("applied/pending = %d/%d, want 1/0", len(applied), len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not parsed")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_frames") {
		t.Error("table test_frames should have been dropped")
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied after rollback = %d, want 0", len(applied))
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() with nothing applied = %v", err)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	var emptyFS embed.FS
	useMigrations(t, emptyFS, ".")
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestGetMigrationStatusPending(t *testing.T) {
	useMigrations(t, testMigrationsFS, testMigrationsDir)
	db := openTestDB(t)
	ctx := context.Background()

	// Fresh database: the status query creates schema_migrations itself.
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Fatalf("applied/pending = %d/%d, want 0/1", len(applied), len(pending))
	}
	if pending[0].Name != "test_frames" || pending[0].DownSQL == "" {
		t.Errorf("pending[0] = %+v", pending[0])
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"up", "20261019_120000_rf433_transmitters.up.sql", "20261019_120000", true, true},
		{"down", "20261019_120000_rf433_transmitters.down.sql", "20261019_120000", false, true},
		{"not sql", "readme.txt", "", false, false},
		{"missing direction", "20261019_120000_rf433_transmitters.sql", "", false, false},
		{"invalid format", "invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("got (%q, %v), want (%q, %v)", version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20261019_120000_rf433_transmitters.up.sql", "rf433_transmitters"},
		{"20260101_000000_test_frames.down.sql", "test_frames"},
		{"noversion.up.sql", "noversion"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
