// cmd/web/main.go
//
// Apply – HTTP entry point.
//
// Start-up
// --------
//
//  1. bootstrap.Open: config (koanf + Vault), rotating zap logger,
//     application stores, and mail sender.
//
//  2. Session store: Redis when redis.url is set, memory otherwise.
//
//  3. Components: run each component's migrations, then Init it with the
//     shared dependencies.  Extra form definitions from apply.forms_dirs
//     are layered over the embedded ones afterwards.
//
//  4. Router: HTTPS redirect, security headers, /metrics, /healthz, and
//     one mount per component under “/<name>”.
//
//  5. Serve until SIGINT or SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/bootstrap"
	"github.com/mattandrews/blf-test-sub000/internal/component"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/metrics"
	"github.com/mattandrews/blf-test-sub000/internal/middleware"
	"github.com/mattandrews/blf-test-sub000/internal/server"
	"github.com/mattandrews/blf-test-sub000/internal/session"

	_ "github.com/mattandrews/blf-test-sub000/components/apply" // application forms
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Open(ctx, "web")
	if err != nil {
		log.Fatalf("start-up: %v", err)
	}
	defer env.Close()
	logOut := env.Log
	cfg := env.Cfg

	//
	// ── 1.  Sessions ────────────────────────────────────────────────────
	//
	var store session.Store = &session.MemoryStore{}
	if cfg.Redis.URL != "" {
		rdb, err := session.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			logOut.Fatal("connect redis", zap.Error(err))
		}
		defer func(c *redis.Client) { _ = c.Close() }(rdb)
		store = session.RedisStore{Client: rdb}
		logOut.Info("session store: redis")
	} else {
		logOut.Warn("session store: memory (redis.url is empty)")
	}

	deps := component.Deps{
		Pending:    env.Pending,
		Submitted:  env.Submitted,
		Sessions:   &session.Manager{Store: store},
		Mail:       env.Mail,
		Log:        logOut,
		CSRFSecret: cfg.HTTP.CSRFSecret,
		PublicURL:  cfg.HTTP.PublicURL,
	}

	//
	// ── 2.  Components ──────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, middleware.AccessLog(logOut), chimw.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, next) })
	r.Use(middleware.Security)

	for _, c := range component.All() {
		if err := env.Migrate(ctx, c.Migrations()); err != nil {
			logOut.Fatal("component migrations", zap.String("component", c.Name()), zap.Error(err))
		}
		if err := c.Init(deps); err != nil {
			logOut.Fatal("component init", zap.String("component", c.Name()), zap.Error(err))
		}
		r.Mount("/"+c.Name(), c.Routes())
		logOut.Info("component mounted", zap.String("component", c.Name()))
	}

	if len(cfg.Apply.FormsDirs) > 0 {
		if err := form.RegisterForms(cfg.Apply.FormsDirs); err != nil {
			logOut.Fatal("load form overrides", zap.Strings("dirs", cfg.Apply.FormsDirs), zap.Error(err))
		}
		metrics.FormsLoaded.Set(float64(len(form.IDs())))
		logOut.Info("form overrides loaded", zap.Strings("forms", form.IDs()))
	}

	//
	// ── 3.  Operational endpoints ───────────────────────────────────────
	//
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if env.DB != nil {
			if err := env.DB.PingContext(req.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})

	//
	// ── 4.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)
	if err := server.Run(ctx, srv, logOut); err != nil {
		logOut.Error("http server", zap.Error(err))
	}
}
