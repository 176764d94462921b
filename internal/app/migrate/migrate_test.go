package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pressly/goose/v3"
)

func TestNewRejectsMissingPool(t *testing.T) {
	if _, err := New(nil, "postgres://localhost/db", t.TempDir(), nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestEmbeddedMigrationsCarryBothDirections(t *testing.T) {
	fsys, source, err := migrationFS("")
	if err != nil {
		t.Fatalf("migrationFS: %v", err)
	}
	if source != "embedded" {
		t.Fatalf("expected embedded source, got %q", source)
	}
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations compiled into the binary")
	}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		text := string(data)
		if !strings.Contains(text, "-- +goose Up") || !strings.Contains(text, "-- +goose Down") {
			t.Fatalf("%s must declare up and down sections", name)
		}
	}
}

func TestMigrationDirMustExist(t *testing.T) {
	if _, _, err := migrationFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
	file := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(file, []byte("-- +goose Up\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := migrationFS(file); err == nil {
		t.Fatal("expected error when path is a file")
	}
}

func TestSummarizeSplitsAppliedAndPending(t *testing.T) {
	statuses := []*goose.MigrationStatus{
		{Source: &goose.Source{Path: "00001_console_schema.sql", Version: 1}, State: goose.StateApplied},
		{Source: &goose.Source{Path: "00002_audit.sql", Version: 2}, State: goose.StateApplied},
		{Source: &goose.Source{Path: "00003_quotas.sql", Version: 3}, State: goose.StatePending},
	}
	got := summarize(statuses)
	want := SchemaReport{
		Current: 2,
		Latest:  3,
		Applied: []string{"00001_console_schema.sql", "00002_audit.sql"},
		Pending: []string{"00003_quotas.sql"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if got.UpToDate() {
		t.Fatal("report with pending migrations must not be up to date")
	}
}

func TestSummarizeEmptyDatabase(t *testing.T) {
	got := summarize([]*goose.MigrationStatus{
		{Source: &goose.Source{Path: "00001_console_schema.sql", Version: 1}, State: goose.StatePending},
	})
	if got.Current != 0 || got.Latest != 1 || got.UpToDate() {
		t.Fatalf("unexpected report %+v", got)
	}
}
