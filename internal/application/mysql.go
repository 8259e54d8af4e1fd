// internal/application/mysql.go
//
// MySQL implementation of PendingStore and SubmittedStore.
//
// Context
// -------
// One *sqlx.DB serves both tables.  Every helper executes a single
// parameterised statement and respects the caller's context deadline.
//
// Notes
// -----
//   - Column lists match the `db` tags in model.go; update both together.
//   - IDs are random UUIDs assigned here, never by the database.
//   - Update touches the answers and locale only.  The reminder marker is
//     written through MarkStage so a user save can never reset it.
package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const pendingColumns = `id, form_id, owner_email, locale, application_data,
               reminder_stage, expires_at, created_at, updated_at`

// SQLStore persists applications in MySQL.
type SQLStore struct {
	DB       *sqlx.DB
	Lifetime time.Duration
	Now      func() time.Time
}

// NewSQLStore wraps db.
func NewSQLStore(db *sqlx.DB, lifetime time.Duration) *SQLStore {
	return &SQLStore{DB: db, Lifetime: lifetime, Now: time.Now}
}

func (s *SQLStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Pending returns the pending-application view of the store.
func (s *SQLStore) Pending() PendingStore { return sqlPending{s} }

// Submitted returns the submitted-application view of the store.
func (s *SQLStore) Submitted() SubmittedStore { return sqlSubmitted{s} }

// ----------------------------------------------------------------------------
// Pending
// ----------------------------------------------------------------------------

type sqlPending struct{ s *SQLStore }

func (p sqlPending) FindByID(ctx context.Context, id string) (Pending, error) {
	q := `
        SELECT ` + pendingColumns + `
        FROM   pending_application
        WHERE  id = ?
        LIMIT  1`
	var rec Pending
	if err := p.s.DB.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pending{}, ErrNotFound
		}
		return Pending{}, fmt.Errorf("application: find pending %s: %w", id, err)
	}
	return rec, nil
}

func (p sqlPending) Create(ctx context.Context, rec Pending) (Pending, error) {
	rec = prepare(rec, p.s.now(), p.s.Lifetime, uuid.NewString)
	const q = `
        INSERT INTO pending_application
               (id, form_id, owner_email, locale, application_data,
                reminder_stage, expires_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := p.s.DB.ExecContext(ctx, q,
		rec.ID, rec.FormID, rec.OwnerEmail, rec.Locale, rec.ApplicationData,
		rec.ReminderStage, rec.ExpiresAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return Pending{}, fmt.Errorf("application: create pending: %w", err)
	}
	return rec, nil
}

func (p sqlPending) Update(ctx context.Context, rec Pending) (Pending, error) {
	rec.UpdatedAt = p.s.now()
	const q = `
        UPDATE pending_application
        SET    application_data = ?, locale = ?, updated_at = ?
        WHERE  id = ?`
	res, err := p.s.DB.ExecContext(ctx, q, rec.ApplicationData, rec.Locale, rec.UpdatedAt, rec.ID)
	if err != nil {
		return Pending{}, fmt.Errorf("application: update pending %s: %w", rec.ID, err)
	}
	if err := affected(res); err != nil {
		return Pending{}, err
	}
	return rec, nil
}

func (p sqlPending) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM pending_application WHERE id = ?`
	res, err := p.s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("application: delete pending %s: %w", id, err)
	}
	return affected(res)
}

func (p sqlPending) FindByExpiryRange(ctx context.Context, now time.Time, minDays, maxDays int) ([]Pending, error) {
	q := `
        SELECT ` + pendingColumns + `
        FROM   pending_application
        WHERE  expires_at >  ?
          AND  expires_at <= ?
        ORDER  BY expires_at`
	var rows []Pending
	lo, hi := now.Add(days(minDays)), now.Add(days(maxDays))
	if err := p.s.DB.SelectContext(ctx, &rows, q, lo, hi); err != nil {
		return nil, fmt.Errorf("application: expiry range %d-%d: %w", minDays, maxDays, err)
	}
	return rows, nil
}

func (p sqlPending) FindExpired(ctx context.Context, now time.Time) ([]Pending, error) {
	q := `
        SELECT ` + pendingColumns + `
        FROM   pending_application
        WHERE  expires_at <= ?
        ORDER  BY expires_at`
	var rows []Pending
	if err := p.s.DB.SelectContext(ctx, &rows, q, now); err != nil {
		return nil, fmt.Errorf("application: find expired: %w", err)
	}
	return rows, nil
}

func (p sqlPending) MarkStage(ctx context.Context, id, stage string) error {
	const q = `UPDATE pending_application SET reminder_stage = ? WHERE id = ?`
	res, err := p.s.DB.ExecContext(ctx, q, stage, id)
	if err != nil {
		return fmt.Errorf("application: mark %s as %s: %w", id, stage, err)
	}
	return affected(res)
}

// ----------------------------------------------------------------------------
// Submitted
// ----------------------------------------------------------------------------

const submittedColumns = `id, form_id, owner_email, salesforce_submission, created_at`

type sqlSubmitted struct{ s *SQLStore }

func (sub sqlSubmitted) FindByID(ctx context.Context, id string) (Submitted, error) {
	q := `
        SELECT ` + submittedColumns + `
        FROM   submitted_application
        WHERE  id = ?
        LIMIT  1`
	var rec Submitted
	if err := sub.s.DB.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submitted{}, ErrNotFound
		}
		return Submitted{}, fmt.Errorf("application: find submitted %s: %w", id, err)
	}
	return rec, nil
}

func (sub sqlSubmitted) FindByOwner(ctx context.Context, owner string) ([]Submitted, error) {
	q := `
        SELECT ` + submittedColumns + `
        FROM   submitted_application
        WHERE  owner_email = ?
        ORDER  BY created_at DESC`
	var rows []Submitted
	if err := sub.s.DB.SelectContext(ctx, &rows, q, owner); err != nil {
		return nil, fmt.Errorf("application: submitted for owner: %w", err)
	}
	return rows, nil
}

func (sub sqlSubmitted) Create(ctx context.Context, rec Submitted) (Submitted, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = sub.s.now()
	}
	const q = `
        INSERT INTO submitted_application
               (id, form_id, owner_email, salesforce_submission, created_at)
        VALUES (?, ?, ?, ?, ?)`
	_, err := sub.s.DB.ExecContext(ctx, q,
		rec.ID, rec.FormID, rec.OwnerEmail, rec.SalesforceSubmission, rec.CreatedAt)
	if err != nil {
		return Submitted{}, fmt.Errorf("application: create submitted: %w", err)
	}
	return rec, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
