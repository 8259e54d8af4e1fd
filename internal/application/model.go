// internal/application/model.go
//
// Pending and submitted application row models.
//
// Context
// -------
// A pending application is a partially completed form fill.  Its answers
// live in one JSON column keyed by step ("step-1", "step-2", ... "review").
// A submitted application keeps the payload that was handed downstream, with
// the flattened answers under "application".
//
// Schema reference
//
//	CREATE TABLE pending_application (
//	    id               CHAR(36)     PRIMARY KEY,
//	    form_id          VARCHAR(128) NOT NULL,
//	    owner_email      VARCHAR(320) NOT NULL,
//	    locale           VARCHAR(8)   NOT NULL DEFAULT 'en',
//	    application_data JSON         NOT NULL,
//	    reminder_stage   VARCHAR(32)  NOT NULL DEFAULT '',
//	    expires_at       TIMESTAMP    NOT NULL,
//	    created_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    KEY idx_pending_expires (expires_at)
//	);
//
//	CREATE TABLE submitted_application (
//	    id                    CHAR(36)     PRIMARY KEY,
//	    form_id               VARCHAR(128) NOT NULL,
//	    owner_email           VARCHAR(320) NOT NULL,
//	    salesforce_submission JSON         NOT NULL,
//	    created_at            TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    KEY idx_submitted_owner (owner_email)
//	);
//
// Notes
// -----
//   - Records are plain values.  Stores hand out copies and callers write
//     changes back through Update; nothing is shared between goroutines.
//   - ReminderStage is the last reminder that was confirmed sent.  The empty
//     string means none.
package application

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// Blob is a JSON object column.
type Blob map[string]any

// Value implements driver.Valuer.
func (b Blob) Value() (driver.Value, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(b))
}

// Scan implements sql.Scanner.
func (b *Blob) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*b = Blob{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("application: cannot scan %T into Blob", src)
	}
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("application: decode blob: %w", err)
		}
	}
	*b = m
	return nil
}

// Pending mirrors one row in `pending_application`.
type Pending struct {
	ID              string    `db:"id" json:"id"`
	FormID          string    `db:"form_id" json:"formId"`
	OwnerEmail      string    `db:"owner_email" json:"ownerEmail"`
	Locale          string    `db:"locale" json:"locale"`
	ApplicationData Blob      `db:"application_data" json:"applicationData"`
	ReminderStage   string    `db:"reminder_stage" json:"reminderStage,omitempty"`
	ExpiresAt       time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Data returns the stored step data as a snapshot.
func (p Pending) Data() form.Data {
	return form.FromMap(p.ApplicationData)
}

// WithData returns a copy of p carrying d.
func (p Pending) WithData(d form.Data) Pending {
	p.ApplicationData = Blob(d.Map())
	return p
}

// Answers flattens the step data into one field-keyed map.
func (p Pending) Answers() map[string]any {
	return p.Data().Flatten()
}

// Submitted mirrors one row in `submitted_application`.
type Submitted struct {
	ID                   string    `db:"id" json:"id"`
	FormID               string    `db:"form_id" json:"formId"`
	OwnerEmail           string    `db:"owner_email" json:"ownerEmail"`
	SalesforceSubmission Blob      `db:"salesforce_submission" json:"salesforceSubmission"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
}

// Answers returns the submitted application answers.
func (s Submitted) Answers() map[string]any {
	m, _ := schema.AsMap(s.SalesforceSubmission["application"])
	return m
}

// NewSubmitted builds the submitted record for a processed submission.
func NewSubmitted(owner string, sub form.Submission) Submitted {
	return Submitted{
		FormID:     sub.FormID,
		OwnerEmail: owner,
		SalesforceSubmission: Blob{
			"locale":      string(sub.Locale),
			"application": sub.Value,
		},
		CreatedAt: sub.SubmittedAt,
	}
}

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("application: not found")
