// Package dbtest opens throwaway SQLite databases with the production schema.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/config"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Open returns a client backed by a file database under t.TempDir(). Writers
// take the lock at BEGIN so concurrent transactions queue instead of failing.
func Open(t testing.TB) *db.Client {
	t.Helper()

	cfg := config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=10000&_txlock=immediate",
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return client
}

// SeedUser inserts a user with a throwaway password hash.
func SeedUser(t testing.TB, client *db.Client, username string, role enums.Role) *models.User {
	t.Helper()
	user := &models.User{Username: username, Name: username, Role: role, PasswordHash: "x"}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

// SeedEquipment inserts an item with the given count and status as-is.
func SeedEquipment(t testing.TB, client *db.Client, name string, qty int, status enums.EquipmentStatus) *models.Equipment {
	t.Helper()
	item := &models.Equipment{Name: name, TotalAvailable: qty, AvailabilityStatus: status}
	if err := client.DB().Create(item).Error; err != nil {
		t.Fatalf("seed equipment %s: %v", name, err)
	}
	return item
}

// SeedLoan inserts a loan directly, bypassing the reservation.
func SeedLoan(t testing.TB, client *db.Client, borrowerID, equipmentID uuid.UUID, qty int, status enums.LoanStatus) *models.Loan {
	t.Helper()
	start := time.Now().UTC().Truncate(24 * time.Hour)
	loan := &models.Loan{
		BorrowerID:  borrowerID,
		EquipmentID: equipmentID,
		Quantity:    qty,
		StartDate:   start,
		DueDate:     start.AddDate(0, 0, 7),
		Status:      status,
	}
	if err := client.DB().Create(loan).Error; err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return loan
}
