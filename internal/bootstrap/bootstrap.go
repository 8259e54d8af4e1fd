// internal/bootstrap/bootstrap.go
//
// Shared process start-up for cmd/web and cmd/expiry.
//
// Workflow
// --------
//  1. Pre-config logger so config.Load can report what it reads.
//  2. Vault client when VAULT_ADDR is set; config.Load with it.
//  3. Rotating zap logger per binary (logs/<name>-YYYY-MM-DD.log).
//  4. Application stores: MySQL when database.dsn is set, memory otherwise.
//  5. Mail sender: SES or the log sender, by email.provider.
//
// Close releases whatever Open acquired, in reverse order.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/config"
	"github.com/mattandrews/blf-test-sub000/internal/database"
	"github.com/mattandrews/blf-test-sub000/internal/logger"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
	"github.com/mattandrews/blf-test-sub000/internal/vault"
)

// Env is everything a binary needs after start-up.
type Env struct {
	Cfg       *config.Config
	Log       *zap.Logger
	DB        *sqlx.DB // nil when running on the memory store
	Pending   application.PendingStore
	Submitted application.SubmittedStore
	Mail      mail.Sender
}

// Open loads configuration and builds the shared resources.  name prefixes
// the log file.
func Open(ctx context.Context, name string) (*Env, error) {
	boot, _ := zap.NewProduction()
	zap.ReplaceGlobals(boot)

	vc, err := vault.FromEnv(ctx, boot)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	// A nil *vault.Client in a non-nil interface would pass the nil check
	// inside config.Load, so only wrap a real client.
	var resolver config.SecretResolver
	if vc != nil {
		resolver = vc
	}

	cfg, err := config.Load(ctx, resolver)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Root:  cfg.Paths.Root,
		Name:  name,
		Level: cfg.Log.Level,
		Tee:   logger.RunningInTTY(),
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	_ = boot.Sync()

	env := &Env{Cfg: cfg, Log: log}

	if cfg.Database.DSN != "" {
		db, err := database.OpenWithOptions(ctx, cfg.Database.ResolvedDSN(),
			cfg.Database.MaxOpen, cfg.Database.MaxIdle)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		env.DB = db
		store := application.NewSQLStore(db, cfg.Expiry.Lifetime)
		env.Pending, env.Submitted = store.Pending(), store.Submitted()
		log.Info("application store: mysql")
	} else {
		store := application.NewMemoryStore(cfg.Expiry.Lifetime)
		env.Pending, env.Submitted = store.Pending(), store.Submitted()
		log.Warn("application store: memory (database.dsn is empty)")
	}

	switch cfg.Email.Provider {
	case "ses":
		sender, err := mail.NewSESSender(ctx, cfg.Email.Region, cfg.Email.From)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("mail: %w", err)
		}
		env.Mail = sender
	default:
		env.Mail = mail.LogSender{Log: log.Named("mail")}
	}
	return env, nil
}

// Migrate executes statements in order against the database.  It is a no-op
// on the memory store.
func (e *Env) Migrate(ctx context.Context, statements []string) error {
	if e.DB == nil {
		return nil
	}
	for _, stmt := range statements {
		if _, err := e.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database and flushes the logger.
func (e *Env) Close() error {
	var errs []error
	if e.DB != nil {
		errs = append(errs, e.DB.Close())
	}
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	return errors.Join(errs...)
}
