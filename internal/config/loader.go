// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `APPLY_`, where `__` maps to “.”
     (e.g., `APPLY_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, `vault:` references are swapped for their secrets, the tree
is unmarshalled into strongly-typed structs, validated, enriched with the
runtime root path, and cached in an `atomic.Pointer` for lock-free reads.
`Reload()` calls `Load()` again with the same resolver and swaps the
pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, secret lookup, unmarshal,
    validation failures.
  • INFO  span:  final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "APPLY_"
	vaultPrefix = "vault:"
	secretTTL   = 10 * time.Minute
)

// SecretResolver fetches one key of a KV secret.  *vault.Client satisfies
// it.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

var (
	current  atomic.Pointer[Config]
	resolver atomic.Pointer[resolverBox]
)

type resolverBox struct{ r SecretResolver }

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves APPLY_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("APPLY_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets through r (may be
// nil when no `vault:` values are present), validates, and caches Config.
func Load(ctx context.Context, r SecretResolver) (*Config, error) {
	resolver.Store(&resolverBox{r: r})

	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: APPLY_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, r); err != nil {
		zap.S().Errorw("config secret lookup failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"email", cfg.Email.Provider,
		"database", cfg.Database.DSN != "",
		"redis", cfg.Redis.URL != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets replaces every `vault:<path>#<key>` string in k.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, r SecretResolver) error {
	keys := k.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		s, ok := k.Get(key).(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config: %s references vault but no resolver is configured", key)
		}
		path, field, ok := strings.Cut(strings.TrimPrefix(s, vaultPrefix), "#")
		if !ok || path == "" || field == "" {
			return fmt.Errorf("config: %s: malformed vault reference %q", key, s)
		}
		val, err := r.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error {
	var r SecretResolver
	if b := resolver.Load(); b != nil {
		r = b.r
	}
	_, err := Load(ctx, r)
	return err
}
