package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/events"
	"github.com/frahmantamala/academy-portal/internal/identity"
)

// PeriodLister is the slice of the academy API the store needs after a
// login: the session-listing endpoint.
type PeriodLister interface {
	ListPeriods(ctx context.Context) ([]Period, error)
}

// Store is the single source of truth for who is signed in and which
// period is active. It is the sole writer of both the in-memory state
// and the durable records; readers (guards, handlers, the permission
// gate) only go through its accessors. All mutation replaces records
// wholesale, never patches fields in place.
type Store struct {
	storage Storage
	periods PeriodLister
	bus     *events.EventBus
	logger  *slog.Logger

	mu      sync.RWMutex
	ident   *identity.Identity
	current *Period
	loading bool
}

func NewStore(storage Storage, periods PeriodLister, bus *events.EventBus, logger *slog.Logger) *Store {
	return &Store{
		storage: storage,
		periods: periods,
		bus:     bus,
		logger:  logger,
		loading: true,
	}
}

// Loading reports whether rehydration is still running. Guards must not
// make redirect decisions while this is true.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Identity returns a copy of the signed-in identity, or nil.
func (s *Store) Identity() *identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ident == nil {
		return nil
	}
	clone := *s.ident
	clone.Permissions = append([]string(nil), s.ident.Permissions...)
	return &clone
}

// CurrentPeriod returns a copy of the active period, or nil.
func (s *Store) CurrentPeriod() *Period {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	clone := *s.current
	return &clone
}

// HasPermission reports whether the signed-in identity holds the token.
// False whenever nobody is signed in. Never panics.
func (s *Store) HasPermission(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ident.HasPermission(token)
}

// Rehydrate rebuilds in-memory state from durable storage. Runs once at
// startup; the loading flag drops regardless of outcome. Storage
// failures are recovered locally by starting empty; they never reach
// the operator.
func (s *Store) Rehydrate(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	ident, ok := s.rehydrateIdentity(ctx)
	if !ok {
		s.clearDurable(ctx)
		return
	}

	period, ok := s.rehydratePeriod(ctx)
	if !ok {
		s.clearDurable(ctx)
		return
	}

	s.mu.Lock()
	s.ident = ident
	s.current = period
	s.mu.Unlock()
}

// rehydrateIdentity loads the persisted identity record. A stale
// forced-password-change record must never grant access: it is deleted
// and treated as absent. Returns ok=false only on storage failure.
func (s *Store) rehydrateIdentity(ctx context.Context) (*identity.Identity, bool) {
	raw, err := s.storage.Get(ctx, KeyIdentity)
	if errors.Is(err, ErrNotFound) {
		return nil, true
	}
	if err != nil {
		s.logger.Warn("rehydration: identity read failed", "error", err)
		return nil, false
	}

	var ident identity.Identity
	if err := json.Unmarshal(raw, &ident); err != nil {
		s.logger.Warn("rehydration: identity record unparsable", "error", err)
		return nil, false
	}
	if ident.Incomplete() {
		s.logger.Warn("rehydration: identity record incomplete")
		return nil, false
	}
	if ident.MustChangePassword {
		s.logger.Info("rehydration: discarding identity pending password change", "email", ident.Email)
		if err := s.storage.Delete(ctx, KeyIdentity); err != nil {
			s.logger.Warn("rehydration: failed to delete stale identity record", "error", err)
		}
		return nil, true
	}
	return &ident, true
}

// rehydratePeriod loads the persisted period record as-is; no
// validation beyond existence and parsability.
func (s *Store) rehydratePeriod(ctx context.Context) (*Period, bool) {
	raw, err := s.storage.Get(ctx, KeyPeriod)
	if errors.Is(err, ErrNotFound) {
		return nil, true
	}
	if err != nil {
		s.logger.Warn("rehydration: period read failed", "error", err)
		return nil, false
	}

	var period Period
	if err := json.Unmarshal(raw, &period); err != nil {
		s.logger.Warn("rehydration: period record unparsable", "error", err)
		return nil, false
	}
	return &period, true
}

// Login adopts an authenticated identity. The write-readback-set
// sequence is strictly ordered, and a persistence failure
// short-circuits the whole login: the period lookup is never attempted
// and in-memory state stays untouched. The period lookup itself is
// best-effort and cannot fail the login.
func (s *Store) Login(ctx context.Context, ident identity.Identity) error {
	if ident.MustChangePassword {
		return internal.ErrPasswordChangeRequired
	}

	raw, err := json.Marshal(ident)
	if err != nil {
		return internal.ErrPersistenceFailed.WithCause(err)
	}

	if err := s.storage.Put(ctx, KeyIdentity, raw); err != nil {
		s.notifyLoginFailed(ctx, "persistence")
		return internal.ErrPersistenceFailed.WithCause(err)
	}

	// Readback verifies the write actually landed before the identity
	// is trusted in memory.
	back, err := s.storage.Get(ctx, KeyIdentity)
	if err != nil || len(back) == 0 {
		s.notifyLoginFailed(ctx, "readback")
		if err == nil {
			err = errors.New("identity readback returned no data")
		}
		return internal.ErrPersistenceFailed.WithCause(err)
	}

	s.mu.Lock()
	s.ident = &ident
	s.mu.Unlock()

	s.refreshCurrentPeriod(ctx)
	return nil
}

// refreshCurrentPeriod queries the academy API for the period in
// progress. On any failure, or when none is in progress, the current
// period is cleared; the caller's login is unaffected either way.
func (s *Store) refreshCurrentPeriod(ctx context.Context) {
	periods, err := s.periods.ListPeriods(ctx)
	if err != nil {
		s.logger.Warn("session lookup failed, clearing current period", "error", err)
		if derr := s.DefineSession(ctx, nil); derr != nil {
			s.logger.Warn("failed to clear current period", "error", derr)
		}
		return
	}

	current, ok := CurrentPeriod(periods)
	if !ok {
		s.logger.Info("no period in progress, clearing current period")
		if derr := s.DefineSession(ctx, nil); derr != nil {
			s.logger.Warn("failed to clear current period", "error", derr)
		}
		return
	}

	if err := s.DefineSession(ctx, &current); err != nil {
		s.logger.Warn("failed to persist current period", "error", err)
	}
}

// Logout removes both durable records and clears in-memory state.
// Idempotent: a second call is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	var firstErr error
	if err := s.storage.Delete(ctx, KeyIdentity); err != nil {
		firstErr = err
	}
	if err := s.storage.Delete(ctx, KeyPeriod); err != nil && firstErr == nil {
		firstErr = err
	}

	s.mu.Lock()
	s.ident = nil
	s.current = nil
	s.mu.Unlock()

	if firstErr != nil {
		return internal.ErrPersistenceFailed.WithCause(firstErr)
	}
	return nil
}

// DefineSession replaces the current period wholesale, or clears it
// when p is nil. On a persistence failure the in-memory period is left
// unchanged.
func (s *Store) DefineSession(ctx context.Context, p *Period) error {
	if p == nil {
		if err := s.storage.Delete(ctx, KeyPeriod); err != nil {
			return internal.ErrPersistenceFailed.WithCause(err)
		}
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		if s.bus != nil {
			_ = s.bus.Publish(ctx, events.NewSessionClearedEvent())
		}
		return nil
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return internal.ErrPersistenceFailed.WithCause(err)
	}
	if err := s.storage.Put(ctx, KeyPeriod, raw); err != nil {
		return internal.ErrPersistenceFailed.WithCause(err)
	}

	clone := *p
	s.mu.Lock()
	s.current = &clone
	s.mu.Unlock()

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewSessionDefinedEvent(p.ID, p.Title))
	}
	return nil
}

func (s *Store) notifyLoginFailed(ctx context.Context, reason string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(ctx, events.NewLoginFailedEvent(reason)); err != nil {
		s.logger.Warn("failed to publish login failure notice", "error", err)
	}
}

// clearDurable wipes both records after a rehydration failure so the
// next start begins from a clean slate.
func (s *Store) clearDurable(ctx context.Context) {
	if err := s.storage.Delete(ctx, KeyIdentity); err != nil {
		s.logger.Warn("failed to clear identity record", "error", err)
	}
	if err := s.storage.Delete(ctx, KeyPeriod); err != nil {
		s.logger.Warn("failed to clear period record", "error", err)
	}
}
