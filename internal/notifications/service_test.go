package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/dbtest"
	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
)

type fixture struct {
	client *db.Client
	repo   Repository
	svc    Service
	sink   *Sink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo)
	require.NoError(t, err)
	sink, err := NewSink(repo)
	require.NoError(t, err)
	return &fixture{client: client, repo: repo, svc: svc, sink: sink}
}

func actorOf(u *models.User) auth.Actor {
	return auth.Actor{ID: u.ID, Role: u.Role}
}

func TestSinkFansOutRoleNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1 := dbtest.SeedUser(t, f.client, "sari", enums.RoleStaff)
	s2 := dbtest.SeedUser(t, f.client, "tono", enums.RoleStaff)
	b := dbtest.SeedUser(t, f.client, "budi", enums.RoleBorrower)

	require.NoError(t, f.sink.NotifyRole(ctx, events.Notification{
		Role: enums.RoleStaff, Type: enums.NotificationLoanRequested,
		Title: "New Loan Request", Message: "budi requested 1 unit", Link: "/loans",
	}))

	for _, u := range []*models.User{s1, s2} {
		count, err := f.svc.UnreadCount(ctx, actorOf(u))
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
	}
	count, err := f.svc.UnreadCount(ctx, actorOf(b))
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, f.sink.NotifyUser(ctx, events.Notification{
		UserID: b.ID, Type: enums.NotificationLoanApproved, Title: "Loan Approved", Message: "ok",
	}))
	page, err := f.svc.List(ctx, actorOf(b), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Loan Approved", page.Items[0].Title)
	require.Empty(t, page.Items[0].Link)

	require.Error(t, f.sink.NotifyUser(ctx, events.Notification{Type: enums.NotificationLoanApproved}))
	require.Error(t, f.sink.NotifyRole(ctx, events.Notification{Type: enums.NotificationLoanApproved}))
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, f.client, "budi", enums.RoleBorrower)
	other := dbtest.SeedUser(t, f.client, "ani", enums.RoleBorrower)

	row := models.Notification{UserID: owner.ID, Type: enums.NotificationFinePaid, Title: "Fine Paid", Message: "lunas"}
	require.NoError(t, f.repo.Create(ctx, &row))

	err := f.svc.MarkRead(ctx, actorOf(other), row.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)

	require.NoError(t, f.svc.MarkRead(ctx, actorOf(owner), row.ID))
	// Already read is still found.
	require.NoError(t, f.svc.MarkRead(ctx, actorOf(owner), row.ID))

	err = f.svc.MarkRead(ctx, actorOf(owner), uuid.Nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	page, err := f.svc.List(ctx, actorOf(owner), ListParams{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestMarkAllReadAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.SeedUser(t, f.client, "budi", enums.RoleBorrower)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.repo.Create(ctx, &models.Notification{
			UserID: u.ID, Type: enums.NotificationLoanOverdue, Title: "Loan Overdue", Message: "late",
		}))
	}

	n, err := f.svc.MarkAllRead(ctx, actorOf(u))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	unread := models.Notification{UserID: u.ID, Type: enums.NotificationLoanOverdue, Title: "Loan Overdue", Message: "late"}
	require.NoError(t, f.repo.Create(ctx, &unread))
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, f.client.DB().Model(&models.Notification{}).Where("1 = 1").Update("created_at", old).Error)

	deleted, err := f.svc.PurgeRead(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)

	count, err := f.svc.UnreadCount(ctx, actorOf(u))
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = f.svc.PurgeRead(ctx, 0)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.SeedUser(t, f.client, "budi", enums.RoleBorrower)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.repo.Create(ctx, &models.Notification{
			UserID: u.ID, Type: enums.NotificationLoanApproved, Title: "Loan Approved", Message: "ok",
		}))
		time.Sleep(2 * time.Millisecond)
	}

	first, err := f.svc.List(ctx, actorOf(u), ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(ctx, actorOf(u), ListParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.NextCursor)

	_, err = f.svc.List(ctx, actorOf(u), ListParams{Cursor: "!!"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(ctx, auth.Actor{}, ListParams{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}
