// Package lock provides the per-key mutual exclusion used to keep at most one production cycle
// running per client, in-process (MemoryLocker) or across processes (ValkeyLocker).
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-localseo/infrastructure/valkey"
	"github.com/google/uuid"
)

// Locker hands out leases. Release must be called with the returned token.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type memoryLease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker implementa Locker en memoria; los leases vencidos se pueden re-adquirir.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]memoryLease),
		now:    time.Now,
	}
}

func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.leases[key] = memoryLease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (m *MemoryLocker) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.leases[key]; ok && l.token == token {
		delete(m.leases, key)
	}
	return nil
}

// ValkeyLocker uses SET NX EX so several server processes never run the same client's cycle.
type ValkeyLocker struct {
	client *valkey.Client
	owner  string
}

// NewValkeyLocker prefixes tokens with owner (the server id) so a held lease can be traced to a process.
func NewValkeyLocker(client *valkey.Client, owner string) *ValkeyLocker {
	return &ValkeyLocker{client: client, owner: owner}
}

func (v *ValkeyLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if v.owner != "" {
		token = v.owner + ":" + token
	}
	ok, err := v.client.TryLock(ctx, v.client.Key("lock", key), token, ttl)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (v *ValkeyLocker) Release(ctx context.Context, key, token string) error {
	return v.client.Unlock(ctx, v.client.Key("lock", key), token)
}
