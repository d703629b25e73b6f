package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sarpraslab/peminjaman-backend/pkg/instance"
)

const defaultLeaseTTL = 10 * time.Minute

// Lock hands out one lease per job name, so overdue reminders and cleanup
// can run on different workers but never twice at once.
type Lock interface {
	Acquire(ctx context.Context, job string) (*Lease, error)
}

// Lease is the outcome of one Acquire. When Held is false, Holder names the
// worker that owns the job right now (empty if it released in between).
type Lease struct {
	Job    string
	Owner  string
	Held   bool
	Holder string

	release func(ctx context.Context) error
}

// Release gives the job back. It is a no-op for leases that were not held.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || !l.Held || l.release == nil {
		return nil
	}
	err := l.release(ctx)
	l.Held = false
	return err
}

// HolderInstance strips the per-run suffix from Holder.
func (l *Lease) HolderInstance() string {
	if l == nil {
		return ""
	}
	id, _, _ := strings.Cut(l.Holder, "/")
	return id
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock keeps each job lease under prefix:job with a TTL, so a crashed
// worker frees its jobs once the TTL lapses.
type RedisLock struct {
	store  leaseStore
	prefix string
	ttl    time.Duration
	newID  func() string
}

func NewRedisLock(store leaseStore, prefix string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, errors.New("lock prefix is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLock{store: store, prefix: prefix, ttl: ttl, newID: uuid.NewString}, nil
}

func (l *RedisLock) key(job string) string {
	return l.prefix + ":" + job
}

// Acquire takes the job lease or reports who holds it.
func (l *RedisLock) Acquire(ctx context.Context, job string) (*Lease, error) {
	if job == "" {
		return nil, errors.New("job name is required")
	}
	key := l.key(job)
	owner := instance.GetID() + "/" + l.newID()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("lease %s: %w", job, err)
	}
	if !ok {
		holder, err := l.store.Get(ctx, key)
		if err != nil {
			// the holder released between SETNX and GET
			holder = ""
		}
		return &Lease{Job: job, Holder: holder}, nil
	}
	return &Lease{
		Job:    job,
		Owner:  owner,
		Held:   true,
		Holder: owner,
		release: func(ctx context.Context) error {
			if _, err := l.store.DelIfValue(ctx, key, owner); err != nil {
				return fmt.Errorf("release %s: %w", job, err)
			}
			return nil
		},
	}, nil
}
