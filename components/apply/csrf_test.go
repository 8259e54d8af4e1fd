package apply

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFRoundTrip(t *testing.T) {
	c, err := NewCSRF(strings.Repeat("s", 32))
	require.NoError(t, err)

	tok, err := c.Token("session-a")
	require.NoError(t, err)
	assert.True(t, c.Verify(tok, "session-a"))
	assert.False(t, c.Verify(tok, "session-b"), "token is bound to its session")
	tampered := []byte(tok)
	if tampered[10] == 'A' {
		tampered[10] = 'Q'
	} else {
		tampered[10] = 'A'
	}
	assert.False(t, c.Verify(string(tampered), "session-a"))
	assert.False(t, c.Verify("", "session-a"))

	other, err := NewCSRF(strings.Repeat("t", 32))
	require.NoError(t, err)
	assert.False(t, other.Verify(tok, "session-a"), "token is bound to its secret")
}

func TestCSRFExpiry(t *testing.T) {
	c, err := NewCSRF(strings.Repeat("s", 32))
	require.NoError(t, err)
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return now }

	tok, err := c.Token("sid")
	require.NoError(t, err)

	now = now.Add(defaultMaxAge - time.Second)
	assert.True(t, c.Verify(tok, "sid"))

	now = now.Add(2 * time.Second)
	assert.False(t, c.Verify(tok, "sid"))

	// Issued in the future beyond the allowed skew.
	now = time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	assert.False(t, c.Verify(tok, "sid"))
}

func TestCSRFNeedsLongSecret(t *testing.T) {
	_, err := NewCSRF("short")
	assert.Error(t, err)
}
