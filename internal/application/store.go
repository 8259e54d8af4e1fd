// internal/application/store.go
//
// Persistence contracts for pending and submitted applications.
//
// Context
// -------
// The form engine never touches storage.  HTTP handlers and the expiry
// runner load a record, hand a copy of its data to the engine, and write the
// returned snapshot back through these interfaces.
//
// Expiry windows
// --------------
// FindByExpiryRange(now, min, max) returns records with
//
//	now+min days < expires_at <= now+max days
//
// and FindExpired(now) returns records with expires_at <= now, so a range
// starting at zero and FindExpired never overlap.
package application

import (
	"context"
	"time"
)

// PendingStore persists partially completed applications.
type PendingStore interface {
	FindByID(ctx context.Context, id string) (Pending, error)
	Create(ctx context.Context, p Pending) (Pending, error)
	Update(ctx context.Context, p Pending) (Pending, error)
	Delete(ctx context.Context, id string) error
	FindByExpiryRange(ctx context.Context, now time.Time, minDays, maxDays int) ([]Pending, error)
	FindExpired(ctx context.Context, now time.Time) ([]Pending, error)
	MarkStage(ctx context.Context, id, stage string) error
}

// SubmittedStore gives access to submitted applications.
type SubmittedStore interface {
	FindByID(ctx context.Context, id string) (Submitted, error)
	FindByOwner(ctx context.Context, owner string) ([]Submitted, error)
	Create(ctx context.Context, s Submitted) (Submitted, error)
}

// DefaultLifetime is how long a pending application lives when the caller
// does not set ExpiresAt.
const DefaultLifetime = 90 * 24 * time.Hour

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

// prepare fills the generated columns of a new pending record.
func prepare(p Pending, now time.Time, lifetime time.Duration, newID func() string) Pending {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Locale == "" {
		p.Locale = "en"
	}
	if p.ApplicationData == nil {
		p.ApplicationData = Blob{}
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = p.CreatedAt.Add(lifetime)
	}
	p.UpdatedAt = now
	return p
}
