// internal/vault/vault.go
//
// Secret lookups for `vault:` configuration values.
//
// Context
// -------
// Deployments keep the database password and the CSRF secret in a KV-v2
// mount.  conf/global.yaml refers to them as `vault:<mount>/<path>#<key>`
// and config.Load asks GetKV for each one before validating, so both
// binaries resolve their secrets once, during start-up.
//
// Workflow
// --------
//  1. FromEnv(ctx, log): nil when VAULT_ADDR is unset (local development).
//  2. New checks the token with lookup-self and logs its remaining TTL.  A
//     rejected token fails start-up instead of the first secret read.
//  3. GetKV reads one key; with ttl > 0 the value is cached so a config
//     reload inside the window does not hit Vault again.
//
// Notes
// -----
//   - No token renewal.  cmd/expiry exits within minutes and cmd/web reads
//     its secrets at boot; operators issue tokens that outlive a deploy.
//   - Only string values are accepted.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Client reads KV-v2 secrets.  Safe for concurrent use.
type Client struct {
	api *vault.Client
	log *zap.Logger

	// Now is the cache clock; nil means time.Now.
	Now func() time.Time

	mu    sync.Mutex
	cache map[string]cached // "<path>#<key>"
}

type cached struct {
	val string
	exp time.Time
}

// FromEnv returns nil, nil when VAULT_ADDR is unset.  Otherwise it behaves
// like New.
func FromEnv(ctx context.Context, log *zap.Logger) (*Client, error) {
	if os.Getenv("VAULT_ADDR") == "" {
		return nil, nil
	}
	return New(ctx, log)
}

// New builds a client from the standard VAULT_* environment and verifies
// the token.
func New(ctx context.Context, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}

	c := &Client{api: api, log: log.Named("vault"), cache: make(map[string]cached)}
	if err := c.checkToken(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) checkToken(ctx context.Context) error {
	sec, err := c.api.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault token lookup: %w", err)
	}
	ttl, _ := sec.TokenTTL()
	if ttl > 0 && ttl < time.Hour {
		c.log.Warn("vault token expires soon", zap.Duration("ttl", ttl))
	} else {
		c.log.Info("vault token ok", zap.Duration("ttl", ttl))
	}
	return nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// GetKV returns one string key of the secret at secretPath ("<mount>/<rel>").
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}
	ref := secretPath + "#" + key

	if ttl > 0 {
		c.mu.Lock()
		cv, ok := c.cache[ref]
		c.mu.Unlock()
		if ok && c.now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	if rel == "" {
		return "", fmt.Errorf("vault: secret path %q has no mount prefix", secretPath)
	}
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in %s", key, secretPath)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: %s is not a string", ref)
	}

	if ttl > 0 {
		c.mu.Lock()
		c.cache[ref] = cached{val: val, exp: c.now().Add(ttl)}
		c.mu.Unlock()
	}
	c.log.Debug("secret read", zap.String("path", secretPath), zap.String("key", key))
	return val, nil
}

// splitMount separates the mount from the rest of the path.
func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}
