// internal/session/session.go
//
// Apply – applicant sessions.
//
// Context
//   A browser session ties an applicant to their pending applications
//   between requests.  The cookie carries only a random UUID.  The session
//   body (applicant email, chosen locale, and the pending application ID
//   per form) lives server side in Redis with a sliding TTL.
//
//   Step data itself is not stored here.  It belongs to the pending
//   application row so it survives the session and can be expired and
//   reminded about.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie.
const CookieName = "apply_session"

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 14 * 24 * time.Hour

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// Session is the server-side state of one browser.
type Session struct {
	ID           string            `json:"id"`
	Email        string            `json:"email,omitempty"`
	Locale       string            `json:"locale,omitempty"`
	Applications map[string]string `json:"applications,omitempty"` // form ID → pending ID
	CreatedAt    time.Time         `json:"createdAt"`
}

// Pending returns the pending application ID for formID.
func (s Session) Pending(formID string) (string, bool) {
	id, ok := s.Applications[formID]
	return id, ok && id != ""
}

// WithPending returns a copy of s recording id for formID.  An empty id
// forgets the form.
func (s Session) WithPending(formID, id string) Session {
	s = s.clone()
	if s.Applications == nil {
		s.Applications = map[string]string{}
	}
	if id == "" {
		delete(s.Applications, formID)
	} else {
		s.Applications[formID] = id
	}
	return s
}

func (s Session) clone() Session {
	if s.Applications != nil {
		apps := make(map[string]string, len(s.Applications))
		for k, v := range s.Applications {
			apps[k] = v
		}
		s.Applications = apps
	}
	return s
}

// Store keeps sessions.
type Store interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Manager binds a Store to the session cookie.
type Manager struct {
	Store Store
	TTL   time.Duration
	Now   func() time.Time
}

func (m *Manager) ttl() time.Duration {
	if m.TTL > 0 {
		return m.TTL
	}
	return DefaultTTL
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// Current returns the session named by the request cookie.
//
// ok == false when the cookie is missing or the session has expired.
func (m *Manager) Current(r *http.Request) (s Session, ok bool, err error) {
	c, cerr := r.Cookie(CookieName)
	if cerr != nil || c.Value == "" {
		return Session{}, false, nil
	}
	if _, perr := uuid.Parse(c.Value); perr != nil {
		return Session{}, false, nil
	}
	s, err = m.Store.Load(r.Context(), c.Value)
	if errors.Is(err, ErrNotFound) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

// Start returns the current session, creating one and setting the cookie
// when there is none.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request) (Session, error) {
	s, ok, err := m.Current(r)
	if err != nil {
		return Session{}, err
	}
	if ok {
		return s, nil
	}
	s = Session{ID: uuid.NewString(), CreatedAt: m.now()}
	if err := m.Save(w, r, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Save persists s and refreshes the cookie, sliding the TTL.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s Session) error {
	if err := m.Store.Save(r.Context(), s, m.ttl()); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  m.now().Add(m.ttl()),
	})
	return nil
}

// End removes the session and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := m.Store.Delete(r.Context(), c.Value); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}
