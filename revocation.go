package auth

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RevokedTokens is the persisted deny list. It only needs to cover the
// window between a logout and the token's natural expiry; after that the
// codec rejects the token on expiry grounds regardless of ledger state.
type RevokedTokens struct {
	db     bun.IDB
	logger Logger
}

var _ RevocationLedger = (*RevokedTokens)(nil)

// NewRevokedTokensLedger returns a ledger backed by the revoked_tokens table.
func NewRevokedTokensLedger(db bun.IDB) *RevokedTokens {
	return &RevokedTokens{
		db:     db,
		logger: defLogger{},
	}
}

func (r *RevokedTokens) WithLogger(l Logger) *RevokedTokens {
	if l != nil {
		r.logger = l
	}
	return r
}

// Revoke inserts a deny list entry. A second revoke of the same jti is a
// no-op, not an error; the primary key plus Ignore makes the insert
// idempotent at the store, which also serializes concurrent logouts.
func (r *RevokedTokens) Revoke(ctx context.Context, jti string, naturalExpiry time.Time) error {
	if jti == "" {
		return nil
	}

	entry := &RevokedToken{
		JTI:       jti,
		ExpiresAt: naturalExpiry,
	}

	if _, err := r.db.NewInsert().Model(entry).Ignore().Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to record token revocation")
	}

	return nil
}

// IsRevoked reports whether the jti has a deny list entry.
func (r *RevokedTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	exists, err := r.db.NewSelect().
		Model((*RevokedToken)(nil)).
		Where("?TableAlias.jti = ?", jti).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryOperation, "failed to check token revocation")
	}

	return exists, nil
}

// Prune drops entries past their natural expiry. Safe to call at any time.
func (r *RevokedTokens) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*RevokedToken)(nil)).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryOperation, "failed to prune revocation ledger")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// StartPruner runs Prune on the given interval until the context is done.
func (r *RevokedTokens) StartPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n, err := r.Prune(ctx, now); err != nil {
					r.logger.Warn("revocation ledger prune error", "error", err)
				} else if n > 0 {
					r.logger.Debug("revocation ledger pruned", "entries", n)
				}
			}
		}
	}()
}

// MemoryRevocationLedger is the in-memory implementation used by tests and
// single-process deployments.
type MemoryRevocationLedger struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

var _ RevocationLedger = (*MemoryRevocationLedger)(nil)

func NewMemoryRevocationLedger() *MemoryRevocationLedger {
	return &MemoryRevocationLedger{
		entries: map[string]time.Time{},
	}
}

func (m *MemoryRevocationLedger) Revoke(ctx context.Context, jti string, naturalExpiry time.Time) error {
	if jti == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[jti]; ok {
		return nil
	}
	m.entries[jti] = naturalExpiry
	return nil
}

func (m *MemoryRevocationLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[jti]
	return ok, nil
}

// Prune drops entries past their natural expiry.
func (m *MemoryRevocationLedger) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jti, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, jti)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (m *MemoryRevocationLedger) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
