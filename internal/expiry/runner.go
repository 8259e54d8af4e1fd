// internal/expiry/runner.go
//
// Batch pass over pending applications.
//
// Context
// -------
// An external scheduler (cron, a Kubernetes CronJob) runs cmd/expiry, which
// calls Runner.Run once.  A run:
//
//  1. Loads records expiring within the next Window days and records that
//     have already expired.
//  2. Deletes every expired record.  A failed delete is logged and counted;
//     the record is still expired next run, so it is retried then.
//  3. Sends the reminder owed to every other record, at most Concurrency at
//     a time.  The stage marker is written only after the mail provider
//     accepted the message, so a failed send is retried next run and a
//     stage is never skipped silently.
//
// Notes
// -----
//   - Sends are independent.  One failure never cancels the others.
//   - Once ctx is done nothing new is started.  Records not reached are
//     counted as Skipped and Run returns the context error, so the
//     scheduler sees a failed run and the next one picks them up.
//   - A marker write that fails after a confirmed send is logged at error
//     level; that record will be reminded again next run.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
	"github.com/mattandrews/blf-test-sub000/internal/metrics"
)

// DefaultConcurrency bounds in-flight sends when Runner.Concurrency is 0.
const DefaultConcurrency = 4

// Runner drives reminders and deletions.
type Runner struct {
	Store       application.PendingStore
	Mail        mail.Sender
	Log         *zap.Logger
	ResumeBase  string
	Concurrency int
	Now         func() time.Time
}

// Report counts what a run did.
type Report struct {
	Candidates      int `json:"candidates"`
	RemindersSent   int `json:"remindersSent"`
	ReminderErrors  int `json:"reminderErrors"`
	Deleted         int `json:"deleted"`
	DeleteErrors    int `json:"deleteErrors"`
	AlreadyNotified int `json:"alreadyNotified"`
	Skipped         int `json:"skipped"`
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.L()
}

// Run performs one pass.  It returns an error when candidates could not be
// loaded or ctx ended before every record was handled; per-record failures
// are reported in Report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	now := r.now()
	log := r.log().With(zap.Time("now", now))

	soon, err := r.Store.FindByExpiryRange(ctx, now, 0, Window)
	if err != nil {
		return Report{}, fmt.Errorf("expiry: load upcoming: %w", err)
	}
	expired, err := r.Store.FindExpired(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("expiry: load expired: %w", err)
	}

	rep := Report{Candidates: len(soon) + len(expired)}

	// ------------------------------------------------------------------
	// Deletions
	// ------------------------------------------------------------------
	for _, rec := range expired {
		if !Classify(rec, now).DueDeletion {
			continue
		}
		if ctx.Err() != nil {
			rep.Skipped++
			continue
		}
		err := r.Store.Delete(ctx, rec.ID)
		switch {
		case err == nil:
			rep.Deleted++
			metrics.DeletionsTotal.Inc()
			log.Info("expiry: deleted", zap.String("id", rec.ID))
		case errors.Is(err, application.ErrNotFound):
			// Removed by someone else since the query ran.
		default:
			rep.DeleteErrors++
			metrics.DeletionErrorsTotal.Inc()
			log.Error("expiry: delete failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}

	// ------------------------------------------------------------------
	// Reminders
	// ------------------------------------------------------------------
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(limit)

	for _, rec := range soon {
		c := Classify(rec, now)
		if !c.DueReminder {
			if c.Stage.Warning() {
				rep.AlreadyNotified++
			}
			continue
		}
		// g.Go blocks while the limit is reached, so check again per record.
		if ctx.Err() != nil {
			mu.Lock()
			rep.Skipped++
			mu.Unlock()
			continue
		}
		rec := rec // per-iteration copy; go directive is 1.21
		g.Go(func() error {
			sent := r.remind(ctx, log, rec, c.Stage)
			mu.Lock()
			switch {
			case sent:
				rep.RemindersSent++
			case ctx.Err() != nil:
				rep.Skipped++
			default:
				rep.ReminderErrors++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil && rep.Skipped > 0 {
		log.Warn("expiry: run cancelled", zap.Int("skipped", rep.Skipped), zap.Error(err))
		return rep, fmt.Errorf("expiry: run cancelled: %w", err)
	}

	log.Info("expiry: run complete",
		zap.Int("candidates", rep.Candidates),
		zap.Int("reminders_sent", rep.RemindersSent),
		zap.Int("reminder_errors", rep.ReminderErrors),
		zap.Int("deleted", rep.Deleted),
		zap.Int("delete_errors", rep.DeleteErrors),
	)
	return rep, nil
}

// remind sends one reminder and advances the marker.  It reports whether
// the provider accepted the message.
func (r *Runner) remind(ctx context.Context, log *zap.Logger, rec application.Pending, stage Stage) bool {
	log = log.With(zap.String("id", rec.ID), zap.String("stage", string(stage)))

	email, err := Reminder(rec, stage, r.ResumeBase)
	if err == nil {
		_, err = r.Mail.Send(ctx, email)
	}
	if err != nil {
		metrics.RemindersFailedTotal.WithLabelValues(string(stage)).Inc()
		log.Warn("expiry: reminder not sent", zap.Error(err))
		return false
	}
	metrics.RemindersSentTotal.WithLabelValues(string(stage)).Inc()

	if err := r.Store.MarkStage(ctx, rec.ID, string(stage)); err != nil {
		log.Error("expiry: reminder sent but marker not saved", zap.Error(err))
		return true
	}
	log.Info("expiry: reminder sent")
	return true
}
