// internal/config/model.go
//
// Typed configuration model for the apply service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `APPLY_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.  The reference format is
// `vault:<mount>/<path>#<key>`.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax (`720h`, `15m`).
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"fmt"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	PublicURL  string `koanf:"public_url"  validate:"required,url"`
	CSRFSecret string `koanf:"csrf_secret" validate:"required,min=32"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  When it contains one `%s` verb the
// *secret* (`Password`, usually a `vault:` reference) is injected there.
// An empty DSN selects the in-memory store for local development.
type Database struct {
	DSN      string `koanf:"dsn"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// ResolvedDSN returns the DSN with the password injected.
func (d Database) ResolvedDSN() string {
	if strings.Count(d.DSN, "%s") == 1 {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

//
// Redis section
//

// Redis configures the session store.  An empty URL keeps sessions in
// process memory.
type Redis struct {
	URL      string `koanf:"url"       validate:"omitempty,url"`
	PoolSize int    `koanf:"pool_size" validate:"gte=0"`
}

//
// Email section
//

// Email selects the outbound mail transport.
type Email struct {
	Provider string `koanf:"provider" validate:"required,oneof=log ses"`
	Region   string `koanf:"region"   validate:"required_if=Provider ses"`
	From     string `koanf:"from"     validate:"required,email"`
}

//
// Expiry section
//

// Expiry tunes pending-application lifetime and the reminder batch.
type Expiry struct {
	Lifetime    time.Duration `koanf:"lifetime"    validate:"gte=0"`
	Concurrency int           `koanf:"concurrency" validate:"gte=0,lte=64"`
}

//
// Apply section
//

// Apply holds form-engine settings.
type Apply struct {
	FormsDirs []string `koanf:"forms_dirs"`
}

//
// Log section
//

// Log tunes the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or APPLY_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // APPLY_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Email    Email    `koanf:"email"`
	Expiry   Expiry   `koanf:"expiry"`
	Apply    Apply    `koanf:"apply"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
