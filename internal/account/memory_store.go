package account

import (
	"context"
	"strings"
	"sync"
	"time"

	xerrors "ChainTip/internal/errors"
)

// MemoryStore keeps accounts in memory. Used by tests and as the
// default driver when no DSN is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]*Account
	// writes orders accounts by last mutation so username collisions
	// resolve to the most recently written account, matching the MySQL
	// store's ORDER BY updated_at DESC with sub-second precision.
	writes map[int64]uint64
	seq    uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*Account),
		writes:   make(map[int64]uint64),
	}
}

func (m *MemoryStore) touch(id int64) {
	m.seq++
	m.writes[id] = m.seq
}

// FindByID implements Store.
func (m *MemoryStore) FindByID(_ context.Context, id int64) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *acct
	return &clone, nil
}

// FindByUsername implements Store. Lookup is case-insensitive; when
// the username is attached to more than one account the most recently
// written one wins.
func (m *MemoryStore) FindByUsername(_ context.Context, username string) (*Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Account
	for id, acct := range m.accounts {
		if !strings.EqualFold(acct.Username, username) {
			continue
		}
		if best == nil || m.writes[id] > m.writes[best.ID] {
			best = acct
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	clone := *best
	return &clone, nil
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, acct *Account) error {
	if acct == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "account cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acct.ID]; ok {
		return ErrExists
	}
	now := time.Now().Unix()
	if acct.CreatedAt == 0 {
		acct.CreatedAt = now
	}
	acct.UpdatedAt = now
	clone := *acct
	m.accounts[acct.ID] = &clone
	m.touch(acct.ID)
	return nil
}

// UpdateUsername implements Store.
func (m *MemoryStore) UpdateUsername(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acct.Username = username
	acct.UpdatedAt = time.Now().Unix()
	m.touch(id)
	return nil
}

// UpdateCachedBalance implements Store.
func (m *MemoryStore) UpdateCachedBalance(_ context.Context, id int64, balance string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acct.Balance = balance
	acct.UpdatedAt = time.Now().Unix()
	m.touch(id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
