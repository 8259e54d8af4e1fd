// cmd/expiry/main.go
//
// Apply – expiry batch entry point.
//
// Run once per day from an external scheduler.  The process sends the
// reminder each pending application is owed, deletes applications past
// their expiry date, logs a one-line report, and exits.  The exit status is
// non-zero only when the run could not complete (store unreachable); single
// failed sends or deletes are counted in the report and retried next run.
//
// Flags
// -----
//
//	-timeout   upper bound for the whole run (default 10m)
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/bootstrap"
	"github.com/mattandrews/blf-test-sub000/internal/expiry"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "upper bound for the whole run")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	env, err := bootstrap.Open(ctx, "expiry")
	if err != nil {
		log.Fatalf("start-up: %v", err)
	}

	runner := &expiry.Runner{
		Store:       env.Pending,
		Mail:        env.Mail,
		Log:         env.Log,
		ResumeBase:  env.Cfg.HTTP.PublicURL,
		Concurrency: env.Cfg.Expiry.Concurrency,
	}
	report, err := runner.Run(ctx)
	env.Log.Info("expiry run finished",
		zap.Int("candidates", report.Candidates),
		zap.Int("reminders_sent", report.RemindersSent),
		zap.Int("reminder_errors", report.ReminderErrors),
		zap.Int("deleted", report.Deleted),
		zap.Int("delete_errors", report.DeleteErrors),
		zap.Int("already_notified", report.AlreadyNotified),
		zap.Int("skipped", report.Skipped),
	)
	if err != nil {
		env.Log.Error("expiry run failed", zap.Error(err))
		_ = env.Close()
		os.Exit(1)
	}
	_ = env.Close()
}
