package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryLeases struct {
	data map[string]string
}

func (m *memoryLeases) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryLeases) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLeases) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func newTestLock(t *testing.T, store *memoryLeases, instanceID string) *RedisLock {
	t.Helper()
	t.Setenv("PEMINJAMAN_INSTANCE_ID", instanceID)
	lock, err := NewRedisLock(store, "pmj:lock:cron:test", time.Minute)
	require.NoError(t, err)
	return lock
}

func TestLeasesArePerJob(t *testing.T) {
	ctx := context.Background()
	store := &memoryLeases{data: map[string]string{}}
	lock := newTestLock(t, store, "worker-a")

	reminder, err := lock.Acquire(ctx, "overdue-reminder")
	require.NoError(t, err)
	require.True(t, reminder.Held)
	require.Contains(t, store.data, "pmj:lock:cron:test:overdue-reminder")

	cleanup, err := lock.Acquire(ctx, "notification-cleanup")
	require.NoError(t, err)
	require.True(t, cleanup.Held)
	require.NotEqual(t, reminder.Owner, cleanup.Owner)
}

func TestLeaseReportsHolderInstance(t *testing.T) {
	ctx := context.Background()
	store := &memoryLeases{data: map[string]string{}}

	first, err := newTestLock(t, store, "worker-a").Acquire(ctx, "overdue-reminder")
	require.NoError(t, err)
	require.True(t, first.Held)

	second, err := newTestLock(t, store, "worker-b").Acquire(ctx, "overdue-reminder")
	require.NoError(t, err)
	require.False(t, second.Held)
	require.Equal(t, first.Owner, second.Holder)
	require.Equal(t, "worker-a", second.HolderInstance())
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.data, "pmj:lock:cron:test:overdue-reminder")

	require.NoError(t, first.Release(ctx))
	require.Empty(t, store.data)
	require.NoError(t, first.Release(ctx))
}

func TestReleaseLeavesLeaseTakenOverAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := &memoryLeases{data: map[string]string{}}
	lock := newTestLock(t, store, "worker-a")

	lease, err := lock.Acquire(ctx, "notification-cleanup")
	require.NoError(t, err)
	// ttl lapsed and another worker took the job
	store.data["pmj:lock:cron:test:notification-cleanup"] = "worker-b/1"

	require.NoError(t, lease.Release(ctx))
	require.Equal(t, "worker-b/1", store.data["pmj:lock:cron:test:notification-cleanup"])
}

type failingLeases struct{ memoryLeases }

func (failingLeases) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestAcquireSurfacesStoreErrors(t *testing.T) {
	lock, err := NewRedisLock(&failingLeases{}, "pmj:lock:cron:test", 0)
	require.NoError(t, err)
	require.Equal(t, defaultLeaseTTL, lock.ttl)

	_, err = lock.Acquire(context.Background(), "overdue-reminder")
	require.ErrorContains(t, err, "lease overdue-reminder")

	_, err = lock.Acquire(context.Background(), "")
	require.Error(t, err)

	_, err = NewRedisLock(nil, "x", time.Minute)
	require.Error(t, err)
}
