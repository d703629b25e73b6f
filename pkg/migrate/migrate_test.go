package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateDirShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestReturnsMigrationEnforcesOneReturnPerLoan(t *testing.T) {
	body := readMigration(t, "*_create_returns.sql")
	for _, want := range []string{
		"CONSTRAINT returns_loan_id_key UNIQUE (loan_id)",
		"CONSTRAINT returns_paid_requires_fine",
		"idx_returns_outstanding",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("returns migration missing %q", want)
		}
	}
}

func TestEquipmentMigrationGuardsStock(t *testing.T) {
	body := readMigration(t, "*_create_categories_equipment.sql")
	if !strings.Contains(body, "CHECK (total_available >= 0)") {
		t.Fatalf("equipment migration missing non-negative stock check")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Loan Index!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_loan_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationStaysAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20300101000000_future.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := createSQLMigration(dir, "add fine index", time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20300101000001_add_fine_index.sql" {
		t.Fatalf("expected version bumped past newest, got %s", path)
	}
	files, err := ListFiles(dir)
	if err != nil || len(files) != 2 || files[1].Name != "add_fine_index" {
		t.Fatalf("unexpected listing %+v err=%v", files, err)
	}
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	if err := os.WriteFile(filepath.Join(dir, "20250301090000_broken.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "unbalanced") {
		t.Fatalf("expected unbalanced statement error, got %v", err)
	}
}

func TestValidateDirRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE loans;\n-- +goose Up\n"
	if err := os.WriteFile(filepath.Join(dir, "20250301090000_swapped.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected ordering error")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected exactly one migration for %s, got %v (%v)", pattern, matches, err)
	}
	b, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read %s: %v", matches[0], err)
	}
	return string(b)
}
