package database_test

import (
	"io"
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/database"
)

func TestMigrationSource(t *testing.T) {
	t.Parallel()

	src, err := database.MigrationSource()
	if err != nil {
		t.Fatalf("MigrationSource() error = %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if first != 1 {
		t.Errorf("First() = %d, want 1", first)
	}

	up, identifier, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp(%d) error = %v", first, err)
	}
	defer up.Close()
	if identifier != "create_lifecycle_history" {
		t.Errorf("identifier = %q, want create_lifecycle_history", identifier)
	}
	body, err := io.ReadAll(up)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS lifecycle_history") {
		t.Errorf("up migration does not create lifecycle_history:\n%s", body)
	}

	next, err := src.Next(first)
	if err != nil {
		t.Fatalf("Next(%d) error = %v", first, err)
	}
	if next != 2 {
		t.Errorf("Next(1) = %d, want 2", next)
	}

	down, _, err := src.ReadDown(next)
	if err != nil {
		t.Fatalf("ReadDown(%d) error = %v", next, err)
	}
	_ = down.Close()
}
