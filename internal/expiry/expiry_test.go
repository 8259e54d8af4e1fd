// internal/expiry/expiry_test.go
//
// Stage classification and batch runner tests.
//
// Run: go test ./internal/expiry -v

package expiry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func expiringIn(d time.Duration) application.Pending {
	return application.Pending{ID: "a", ExpiresAt: now.Add(d)}
}

func TestClassifyOffsets(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want Stage
	}{
		{31 * day, Fresh},
		{30 * day, MonthWarning},
		{15 * day, MonthWarning},
		{14 * day, WeekWarning},
		{3 * day, WeekWarning},
		{2 * day, DayWarning},
		{time.Hour, DayWarning},
		{0, Expired},
		{-day, Expired},
	}
	for _, tc := range cases {
		c := Classify(expiringIn(tc.in), now)
		assert.Equal(t, tc.want, c.Stage, "expires in %v", tc.in)
		assert.Equal(t, tc.want.Warning(), c.DueReminder, "expires in %v", tc.in)
		assert.Equal(t, tc.want == Expired, c.DueDeletion, "expires in %v", tc.in)
	}
}

func TestClassifyDoesNotRefire(t *testing.T) {
	rec := expiringIn(14 * day)
	rec.ReminderStage = string(WeekWarning)
	assert.False(t, Classify(rec, now).DueReminder)

	rec.ReminderStage = string(MonthWarning)
	assert.True(t, Classify(rec, now).DueReminder)

	// A later marker never re-opens an earlier stage.
	rec = expiringIn(20 * day)
	rec.ReminderStage = string(DayWarning)
	assert.False(t, Classify(rec, now).DueReminder)
}

func TestReminderContent(t *testing.T) {
	rec := application.Pending{
		ID:         "a",
		FormID:     "apply/awards-for-all",
		OwnerEmail: "a@example.com",
		Locale:     "cy",
		ExpiresAt:  time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC),
	}.WithData(form.Data{}.WithStep(1, map[string]any{"projectName": "Gardd <gymunedol>"}))

	e, err := Reminder(rec, DayWarning, "https://apply.example.org/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, e.To)
	assert.Equal(t, "Bydd eich cais yn cael ei ddileu mewn deuddydd", e.Subject)
	assert.Contains(t, e.Text, "3 Mehefin 2025")
	assert.Contains(t, e.Text, "https://apply.example.org/apply/awards-for-all")
	assert.Contains(t, e.HTML, "Gardd &lt;gymunedol&gt;")
	assert.NoError(t, e.Check())
}

// ----------------------------------------------------------------------------
// Runner
// ----------------------------------------------------------------------------

type recorder struct {
	mu   sync.Mutex
	sent []mail.Email
	fail func(mail.Email) bool
}

func (r *recorder) Send(_ context.Context, e mail.Email) (mail.Receipt, error) {
	if r.fail != nil && r.fail(e) {
		return mail.Receipt{}, errors.New("smtp timeout")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return mail.Receipt{MessageID: "m"}, nil
}

type failingDelete struct {
	application.PendingStore
	failures atomic.Int32
}

func (f *failingDelete) Delete(ctx context.Context, id string) error {
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return errors.New("lock wait timeout")
	}
	return f.PendingStore.Delete(ctx, id)
}

func seed(t *testing.T, store application.PendingStore, email string, d time.Duration) application.Pending {
	t.Helper()
	p, err := store.Create(context.Background(), application.Pending{
		FormID:     "apply/awards-for-all",
		OwnerEmail: email,
		CreatedAt:  now.Add(-60 * day),
		ExpiresAt:  now.Add(d),
	})
	require.NoError(t, err)
	return p
}

func newRunner(store application.PendingStore, sender mail.Sender) *Runner {
	return &Runner{
		Store:       store,
		Mail:        sender,
		Log:         zap.NewNop(),
		ResumeBase:  "https://apply.example.org",
		Concurrency: 2,
		Now:         func() time.Time { return now },
	}
}

func TestRunnerSendsOncePerStage(t *testing.T) {
	ctx := context.Background()
	mem := application.NewMemoryStore(0)
	store := mem.Pending()

	month := seed(t, store, "month@example.com", 30*day)
	week := seed(t, store, "week@example.com", 10*day)
	seed(t, store, "fresh@example.com", 45*day)
	gone := seed(t, store, "gone@example.com", -day)

	sender := &recorder{}
	r := newRunner(store, sender)

	rep, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.RemindersSent)
	assert.Equal(t, 1, rep.Deleted)
	assert.Len(t, sender.sent, 2)

	_, err = store.FindByID(ctx, gone.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	got, _ := store.FindByID(ctx, month.ID)
	assert.Equal(t, string(MonthWarning), got.ReminderStage)
	got, _ = store.FindByID(ctx, week.ID)
	assert.Equal(t, string(WeekWarning), got.ReminderStage)

	// Second run at the same instant sends nothing new.
	rep, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.RemindersSent)
	assert.Equal(t, 2, rep.AlreadyNotified)
	assert.Len(t, sender.sent, 2)
}

func TestRunnerFailedSendKeepsMarker(t *testing.T) {
	ctx := context.Background()
	store := application.NewMemoryStore(0).Pending()
	rec := seed(t, store, "flaky@example.com", 2*day)
	ok := seed(t, store, "ok@example.com", 2*day)

	sender := &recorder{fail: func(e mail.Email) bool {
		return strings.HasPrefix(e.To[0], "flaky")
	}}
	rep, err := newRunner(store, sender).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.RemindersSent)
	assert.Equal(t, 1, rep.ReminderErrors)

	got, _ := store.FindByID(ctx, rec.ID)
	assert.Empty(t, got.ReminderStage, "marker must not advance on failure")
	got, _ = store.FindByID(ctx, ok.ID)
	assert.Equal(t, string(DayWarning), got.ReminderStage)

	// Next run retries the failed one only.
	sender.fail = nil
	rep, err = newRunner(store, sender).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.RemindersSent)
	got, _ = store.FindByID(ctx, rec.ID)
	assert.Equal(t, string(DayWarning), got.ReminderStage)
}

func TestRunnerRetriesFailedDelete(t *testing.T) {
	ctx := context.Background()
	store := &failingDelete{PendingStore: application.NewMemoryStore(0).Pending()}
	store.failures.Store(1)
	rec := seed(t, store, "old@example.com", -3*day)

	r := newRunner(store, &recorder{})
	rep, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.DeleteErrors)
	_, err = store.FindByID(ctx, rec.ID)
	require.NoError(t, err, "record survives a failed delete")

	rep, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Deleted)
	_, err = store.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

type brokenStore struct{ application.PendingStore }

func (brokenStore) FindByExpiryRange(context.Context, time.Time, int, int) ([]application.Pending, error) {
	return nil, errors.New("db down")
}

func TestRunnerLoadError(t *testing.T) {
	_, err := newRunner(brokenStore{}, &recorder{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

// cancelAfterFirst accepts one message, then cancels the run.
type cancelAfterFirst struct {
	recorder
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) Send(ctx context.Context, e mail.Email) (mail.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return mail.Receipt{}, err
	}
	defer c.cancel()
	return c.recorder.Send(ctx, e)
}

func TestRunnerStopsSchedulingOnceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := application.NewMemoryStore(0).Pending()
	recs := []application.Pending{
		seed(t, store, "one@example.com", 2*day),
		seed(t, store, "two@example.com", 2*day),
		seed(t, store, "three@example.com", 2*day),
	}

	sender := &cancelAfterFirst{cancel: cancel}
	r := newRunner(store, sender)
	r.Concurrency = 1

	rep, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rep.RemindersSent)
	assert.Equal(t, 0, rep.ReminderErrors, "cancelled sends are not failures")
	assert.Equal(t, 2, rep.Skipped)
	assert.Len(t, sender.sent, 1)

	marked := 0
	for _, rec := range recs {
		got, err := store.FindByID(context.Background(), rec.ID)
		require.NoError(t, err)
		if got.ReminderStage != "" {
			marked++
		}
	}
	assert.Equal(t, 1, marked, "only the delivered reminder advances its marker")
}

func TestRunnerCancelledBeforeStartSkipsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := application.NewMemoryStore(0).Pending()
	seed(t, store, "week@example.com", 10*day)
	old := seed(t, store, "old@example.com", -day)

	// Load with a live context, then cancel before any work is scheduled.
	sender := &recorder{}
	r := newRunner(&cancelOnLoad{PendingStore: store, cancel: cancel}, sender)
	rep, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, rep.Skipped)
	assert.Zero(t, rep.Deleted)
	assert.Empty(t, sender.sent)

	_, err = store.FindByID(context.Background(), old.ID)
	assert.NoError(t, err, "expired record is left for the next run")
}

type cancelOnLoad struct {
	application.PendingStore
	cancel context.CancelFunc
}

func (c *cancelOnLoad) FindExpired(ctx context.Context, now time.Time) ([]application.Pending, error) {
	defer c.cancel()
	return c.PendingStore.FindExpired(ctx, now)
}
