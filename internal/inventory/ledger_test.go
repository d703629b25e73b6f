package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/dbtest"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		count   int
		desired enums.EquipmentStatus
		want    enums.EquipmentStatus
	}{
		{"stock available", 3, enums.EquipmentStatusAvailable, enums.EquipmentStatusAvailable},
		{"stock after loaned out", 2, enums.EquipmentStatusLoanedOut, enums.EquipmentStatusAvailable},
		{"damaged with stock", 5, enums.EquipmentStatusDamaged, enums.EquipmentStatusDamaged},
		{"damaged empty", 0, enums.EquipmentStatusDamaged, enums.EquipmentStatusDamaged},
		{"available coerced at zero", 0, enums.EquipmentStatusAvailable, enums.EquipmentStatusLoanedOut},
		{"loaned out at zero", 0, enums.EquipmentStatusLoanedOut, enums.EquipmentStatusLoanedOut},
		{"default at zero", 0, "", enums.EquipmentStatusLoanedOut},
		{"default with stock", 1, "", enums.EquipmentStatusAvailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.count, tc.desired)
			if got != tc.want {
				t.Fatalf("DeriveStatus(%d, %q) = %q, want %q", tc.count, tc.desired, got, tc.want)
			}
			if tc.count == 0 && got == enums.EquipmentStatusAvailable {
				t.Fatalf("empty item must never be available")
			}
		})
	}
}

func TestReserveDecrementsAndFlipsStatusAtZero(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()
	item := dbtest.SeedEquipment(t, client, "Kamera", 3, enums.EquipmentStatusAvailable)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		got, err := ledger.Reserve(ctx, tx, item.ID, 2)
		require.NoError(t, err)
		require.Equal(t, 1, got.TotalAvailable)
		require.Equal(t, enums.EquipmentStatusAvailable, got.AvailabilityStatus)

		got, err = ledger.Reserve(ctx, tx, item.ID, 1)
		require.NoError(t, err)
		require.Equal(t, 0, got.TotalAvailable)
		require.Equal(t, enums.EquipmentStatusLoanedOut, got.AvailabilityStatus)
		return nil
	})
	require.NoError(t, err)

	stored := reload(t, client.DB(), item)
	require.Equal(t, 0, stored.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusLoanedOut, stored.AvailabilityStatus)
}

func TestReserveRejectsShortAndDamagedStock(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()
	short := dbtest.SeedEquipment(t, client, "Tripod", 1, enums.EquipmentStatusAvailable)
	broken := dbtest.SeedEquipment(t, client, "Proyektor", 4, enums.EquipmentStatusDamaged)

	for _, tc := range []struct {
		item *models.Equipment
		qty  int
	}{{short, 2}, {broken, 1}} {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := ledger.Reserve(ctx, tx, tc.item.ID, tc.qty)
			return err
		})
		if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			t.Fatalf("%s: expected insufficient stock, got %v", tc.item.Name, err)
		}
	}

	require.Equal(t, 1, reload(t, client.DB(), short).TotalAvailable)
	stored := reload(t, client.DB(), broken)
	require.Equal(t, 4, stored.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusDamaged, stored.AvailabilityStatus)
}

func TestReserveUnknownEquipment(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger().Reserve(ctx, tx, uuid.New(), 1)
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveLastUnitConcurrently(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()
	item := dbtest.SeedEquipment(t, client, "Mikrofon", 1, enums.EquipmentStatusAvailable)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.WithTx(ctx, func(tx *gorm.DB) error {
				_, err := ledger.Reserve(ctx, tx, item.ID, 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)

	stored := reload(t, client.DB(), item)
	require.Equal(t, 0, stored.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusLoanedOut, stored.AvailabilityStatus)
}

func TestReleaseRestoresAvailabilityButKeepsDamaged(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()
	out := dbtest.SeedEquipment(t, client, "Laptop", 0, enums.EquipmentStatusLoanedOut)
	broken := dbtest.SeedEquipment(t, client, "Speaker", 0, enums.EquipmentStatusDamaged)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := ledger.Release(ctx, tx, out.ID, 2); err != nil {
			return err
		}
		_, err := ledger.Release(ctx, tx, broken.ID, 1)
		return err
	})
	require.NoError(t, err)

	restored := reload(t, client.DB(), out)
	require.Equal(t, 2, restored.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusAvailable, restored.AvailabilityStatus)

	still := reload(t, client.DB(), broken)
	require.Equal(t, 1, still.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusDamaged, still.AvailabilityStatus)
}

func TestReleaseZeroOnlyRecomputes(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	item := dbtest.SeedEquipment(t, client, "Kabel", 0, enums.EquipmentStatusLoanedOut)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger().Release(ctx, tx, item.ID, 0)
		return err
	})
	require.NoError(t, err)
	stored := reload(t, client.DB(), item)
	require.Equal(t, 0, stored.TotalAvailable)
	require.Equal(t, enums.EquipmentStatusLoanedOut, stored.AvailabilityStatus)
}

func TestSetManualFieldsDerivesStatus(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()
	item := dbtest.SeedEquipment(t, client, "Lensa", 2, enums.EquipmentStatusAvailable)

	cases := []struct {
		qty     int
		desired enums.EquipmentStatus
		want    enums.EquipmentStatus
	}{
		{0, enums.EquipmentStatusAvailable, enums.EquipmentStatusLoanedOut},
		{3, enums.EquipmentStatusLoanedOut, enums.EquipmentStatusAvailable},
		{3, enums.EquipmentStatusDamaged, enums.EquipmentStatusDamaged},
		{0, "", enums.EquipmentStatusLoanedOut},
	}
	for _, tc := range cases {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := ledger.SetManualFields(ctx, tx, item.ID, ManualFields{
				Name: "Lensa 50mm", Quantity: tc.qty, Status: tc.desired,
			})
			return err
		})
		require.NoError(t, err)
		stored := reload(t, client.DB(), item)
		require.Equal(t, "Lensa 50mm", stored.Name)
		require.Equal(t, tc.qty, stored.TotalAvailable)
		require.Equal(t, tc.want, stored.AvailabilityStatus, "qty=%d desired=%q", tc.qty, tc.desired)
	}
}

func TestSetManualFieldsValidation(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	item := dbtest.SeedEquipment(t, client, "Lensa", 2, enums.EquipmentStatusAvailable)

	for _, fields := range []ManualFields{
		{Name: " ", Quantity: 1},
		{Name: "Lensa", Quantity: -1},
		{Name: "Lensa", Quantity: 1, Status: "broken"},
	} {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := NewLedger().SetManualFields(ctx, tx, item.ID, fields)
			return err
		})
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", fields, err)
		}
	}
}

func reload(t *testing.T, db *gorm.DB, item *models.Equipment) models.Equipment {
	t.Helper()
	var stored models.Equipment
	if err := db.First(&stored, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("reload equipment: %v", err)
	}
	return stored
}
