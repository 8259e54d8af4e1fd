// internal/application/store_test.go
//
// Unit-tests for the MySQL store using sqlmock, plus the in-memory store.
//
// Run: go test ./internal/application -v

package application

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewSQLStore(sqlx.NewDb(db, "mysql"), 0)
	s.Now = func() time.Time { return fixedNow }
	return s, mock
}

var pendingCols = []string{
	"id", "form_id", "owner_email", "locale", "application_data",
	"reminder_stage", "expires_at", "created_at", "updated_at",
}

func TestSQLPendingFindByID(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM pending_application WHERE id = ? LIMIT 1`)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(pendingCols).AddRow(
			"abc", "awards-for-all", "a@example.com", "cy",
			[]byte(`{"step-1":{"projectName":"Park benches"}}`),
			"month-warning", fixedNow.Add(20*24*time.Hour), fixedNow, fixedNow,
		))

	got, err := s.Pending().FindByID(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "cy", got.Locale)
	assert.Equal(t, "month-warning", got.ReminderStage)
	assert.Equal(t, "Park benches", got.Answers()["projectName"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPendingFindByIDNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM pending_application WHERE id = ?`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(pendingCols))

	_, err := s.Pending().FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLPendingCreate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pending_application`)).
		WithArgs(sqlmock.AnyArg(), "awards-for-all", "a@example.com", "en", sqlmock.AnyArg(),
			"", fixedNow.Add(DefaultLifetime), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.Pending().Create(context.Background(), Pending{
		FormID:     "awards-for-all",
		OwnerEmail: "a@example.com",
	})
	require.NoError(t, err)
	assert.Len(t, got.ID, 36)
	assert.Equal(t, fixedNow.Add(DefaultLifetime), got.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPendingUpdateMissing(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pending_application SET application_data = ?`)).
		WithArgs(sqlmock.AnyArg(), "en", fixedNow, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.Pending().Update(context.Background(), Pending{ID: "gone", Locale: "en"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLPendingExpiryQueries(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE expires_at > ? AND expires_at <= ?`)).
		WithArgs(fixedNow, fixedNow.Add(30*24*time.Hour)).
		WillReturnRows(sqlmock.NewRows(pendingCols).AddRow(
			"a", "f", "a@example.com", "en", []byte(`{}`), "",
			fixedNow.Add(24*time.Hour), fixedNow, fixedNow,
		))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE expires_at <= ?`)).
		WithArgs(fixedNow).
		WillReturnRows(sqlmock.NewRows(pendingCols))

	soon, err := s.Pending().FindByExpiryRange(context.Background(), fixedNow, 0, 30)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, "a", soon[0].ID)

	expired, err := s.Pending().FindExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPendingMarkStageAndDelete(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pending_application SET reminder_stage = ? WHERE id = ?`)).
		WithArgs("week-warning", "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM pending_application WHERE id = ?`)).
		WithArgs("abc").
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, s.Pending().MarkStage(context.Background(), "abc", "week-warning"))
	err := s.Pending().Delete(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSubmittedFindByOwner(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM submitted_application WHERE owner_email = ?`)).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_id", "owner_email", "salesforce_submission", "created_at"}).
			AddRow("s1", "awards-for-all", "a@example.com",
				[]byte(`{"application":{"projectName":"Hall roof"}}`), fixedNow))

	got, err := s.Submitted().FindByOwner(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hall roof", got[0].Answers()["projectName"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlobScan(t *testing.T) {
	var b Blob
	require.NoError(t, b.Scan(nil))
	assert.Empty(t, b)
	require.NoError(t, b.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), b["a"])
	assert.Error(t, b.Scan(42))
	assert.Error(t, b.Scan([]byte(`{`)))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(10 * 24 * time.Hour)
	m.Now = func() time.Time { return fixedNow }
	ps := m.Pending()

	data := form.Data{}.WithStep(1, map[string]any{"projectName": "Garden"})
	created, err := ps.Create(ctx, Pending{FormID: "f", OwnerEmail: "a@example.com"}.WithData(data))
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(10*24*time.Hour), created.ExpiresAt)

	// Writes to a returned copy never reach the store.
	created.ApplicationData["step-1"].(map[string]any)["projectName"] = "Changed"
	again, err := ps.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garden", again.Answers()["projectName"])

	require.NoError(t, ps.MarkStage(ctx, created.ID, "month-warning"))
	updated, err := ps.Update(ctx, again.WithData(data.WithStep(2, map[string]any{"x": "y"})))
	require.NoError(t, err)
	assert.Equal(t, "month-warning", updated.ReminderStage)
	assert.True(t, updated.Data().Has("step-2"))

	inRange, _ := ps.FindByExpiryRange(ctx, fixedNow, 0, 30)
	assert.Len(t, inRange, 1)
	expired, _ := ps.FindExpired(ctx, fixedNow.Add(10*24*time.Hour))
	assert.Len(t, expired, 1)

	require.NoError(t, ps.Delete(ctx, created.ID))
	assert.ErrorIs(t, ps.Delete(ctx, created.ID), ErrNotFound)
	assert.ErrorIs(t, ps.MarkStage(ctx, created.ID, "x"), ErrNotFound)
}

func TestNewSubmitted(t *testing.T) {
	sub := form.Submission{
		FormID:      "awards-for-all",
		Locale:      locale.CY,
		Value:       map[string]any{"projectName": "Hall roof"},
		SubmittedAt: fixedNow,
	}
	rec := NewSubmitted("a@example.com", sub)
	assert.Equal(t, "Hall roof", rec.Answers()["projectName"])

	m := NewMemoryStore(0)
	saved, err := m.Submitted().Create(context.Background(), rec)
	require.NoError(t, err)
	list, err := m.Submitted().FindByOwner(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
}
