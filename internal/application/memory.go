package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps applications in process memory.  It backs tests and
// the local development server when no DSN is configured.
type MemoryStore struct {
	Lifetime time.Duration
	Now      func() time.Time

	mu        sync.RWMutex
	pending   map[string]Pending
	submitted map[string]Submitted
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(lifetime time.Duration) *MemoryStore {
	return &MemoryStore{
		Lifetime:  lifetime,
		Now:       time.Now,
		pending:   map[string]Pending{},
		submitted: map[string]Submitted{},
	}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// Pending returns the pending-application view of the store.
func (m *MemoryStore) Pending() PendingStore { return memPending{m} }

// Submitted returns the submitted-application view of the store.
func (m *MemoryStore) Submitted() SubmittedStore { return memSubmitted{m} }

// Records are copied on the way in and out so callers never share the
// answer maps held here.
func clonePending(p Pending) Pending {
	p.ApplicationData = Blob(p.Data().Map())
	return p
}

type memPending struct{ m *MemoryStore }

func (p memPending) FindByID(_ context.Context, id string) (Pending, error) {
	p.m.mu.RLock()
	defer p.m.mu.RUnlock()
	rec, ok := p.m.pending[id]
	if !ok {
		return Pending{}, ErrNotFound
	}
	return clonePending(rec), nil
}

func (p memPending) Create(_ context.Context, rec Pending) (Pending, error) {
	rec = prepare(clonePending(rec), p.m.now(), p.m.Lifetime, uuid.NewString)
	p.m.mu.Lock()
	p.m.pending[rec.ID] = rec
	p.m.mu.Unlock()
	return clonePending(rec), nil
}

func (p memPending) Update(_ context.Context, rec Pending) (Pending, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	cur, ok := p.m.pending[rec.ID]
	if !ok {
		return Pending{}, ErrNotFound
	}
	cur.ApplicationData = clonePending(rec).ApplicationData
	cur.Locale = rec.Locale
	cur.UpdatedAt = p.m.now()
	p.m.pending[rec.ID] = cur
	return clonePending(cur), nil
}

func (p memPending) Delete(_ context.Context, id string) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if _, ok := p.m.pending[id]; !ok {
		return ErrNotFound
	}
	delete(p.m.pending, id)
	return nil
}

func (p memPending) FindByExpiryRange(_ context.Context, now time.Time, minDays, maxDays int) ([]Pending, error) {
	lo, hi := now.Add(days(minDays)), now.Add(days(maxDays))
	return p.filter(func(r Pending) bool {
		return r.ExpiresAt.After(lo) && !r.ExpiresAt.After(hi)
	}), nil
}

func (p memPending) FindExpired(_ context.Context, now time.Time) ([]Pending, error) {
	return p.filter(func(r Pending) bool { return !r.ExpiresAt.After(now) }), nil
}

func (p memPending) MarkStage(_ context.Context, id, stage string) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	rec, ok := p.m.pending[id]
	if !ok {
		return ErrNotFound
	}
	rec.ReminderStage = stage
	p.m.pending[id] = rec
	return nil
}

func (p memPending) filter(keep func(Pending) bool) []Pending {
	p.m.mu.RLock()
	defer p.m.mu.RUnlock()
	var out []Pending
	for _, r := range p.m.pending {
		if keep(r) {
			out = append(out, clonePending(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

type memSubmitted struct{ m *MemoryStore }

func (s memSubmitted) FindByID(_ context.Context, id string) (Submitted, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	rec, ok := s.m.submitted[id]
	if !ok {
		return Submitted{}, ErrNotFound
	}
	return rec, nil
}

func (s memSubmitted) FindByOwner(_ context.Context, owner string) ([]Submitted, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []Submitted
	for _, r := range s.m.submitted {
		if r.OwnerEmail == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memSubmitted) Create(_ context.Context, rec Submitted) (Submitted, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.m.now()
	}
	s.m.mu.Lock()
	s.m.submitted[rec.ID] = rec
	s.m.mu.Unlock()
	return rec, nil
}
