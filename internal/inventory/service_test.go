package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/dbtest"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client, NewLedger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, nil); err == nil {
		t.Fatalf("expected error for missing repository")
	}
}

func TestCreateEquipmentNotifiesBorrowers(t *testing.T) {
	svc, _ := newTestService(t)
	admin := auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}

	res, err := svc.Create(context.Background(), admin, EquipmentInput{
		Name: "Kamera DSLR", Quantity: 0, Status: enums.EquipmentStatusAvailable,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Equipment.AvailabilityStatus != enums.EquipmentStatusLoanedOut {
		t.Fatalf("zero stock must not be stored as available, got %s", res.Equipment.AvailabilityStatus)
	}
	notes := res.Events.NotificationsOf(enums.NotificationEquipmentAdded)
	if len(notes) != 1 || notes[0].Role != enums.RoleBorrower {
		t.Fatalf("expected one borrower broadcast, got %+v", notes)
	}
	if len(res.Events.Audits) != 1 || res.Events.Audits[0].Action != enums.AuditCreate {
		t.Fatalf("expected create audit, got %+v", res.Events.Audits)
	}
}

func TestCreateEquipmentRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	staff := auth.Actor{ID: uuid.New(), Role: enums.RoleStaff}

	_, err := svc.Create(context.Background(), staff, EquipmentInput{Name: "Tripod", Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = svc.Create(context.Background(), auth.Actor{}, EquipmentInput{Name: "Tripod", Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestDeleteEquipmentWithActiveLoanConflicts(t *testing.T) {
	svc, client := newTestService(t)
	admin := auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}
	borrower := dbtest.SeedUser(t, client, "budi", enums.RoleBorrower)
	item := dbtest.SeedEquipment(t, client, "Proyektor", 1, enums.EquipmentStatusAvailable)
	dbtest.SeedLoan(t, client, borrower.ID, item.ID, 1, enums.LoanStatusPending)

	_, err := svc.Delete(context.Background(), admin, item.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	free := dbtest.SeedEquipment(t, client, "Kabel HDMI", 3, enums.EquipmentStatusAvailable)
	res, err := svc.Delete(context.Background(), admin, free.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Events.Audits[0].Action != enums.AuditDelete {
		t.Fatalf("expected delete audit")
	}
	if _, err := svc.Get(context.Background(), admin, free.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected deleted item to be gone, got %v", err)
	}
}

func TestInventoryTallies(t *testing.T) {
	svc, client := newTestService(t)
	borrower := auth.Actor{ID: uuid.New(), Role: enums.RoleBorrower}
	dbtest.SeedEquipment(t, client, "A", 2, enums.EquipmentStatusAvailable)
	dbtest.SeedEquipment(t, client, "B", 0, enums.EquipmentStatusLoanedOut)
	dbtest.SeedEquipment(t, client, "C", 5, enums.EquipmentStatusDamaged)

	inv, err := svc.Inventory(context.Background(), borrower, ListFilter{})
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(inv.Items) != 3 || inv.TotalUnits != 7 {
		t.Fatalf("unexpected inventory: %+v", inv)
	}
	if inv.AvailableItems != 1 || inv.LoanedOutItems != 1 || inv.DamagedItems != 1 {
		t.Fatalf("unexpected tallies: %+v", inv)
	}

	filtered, err := svc.Inventory(context.Background(), borrower, ListFilter{Search: "b"})
	if err != nil {
		t.Fatalf("inventory search: %v", err)
	}
	if len(filtered.Items) != 1 || filtered.Items[0].Name != "B" {
		t.Fatalf("unexpected search result: %+v", filtered.Items)
	}
}
