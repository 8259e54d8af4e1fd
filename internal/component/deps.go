// internal/component/deps.go
package component

import (
	"time"

	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
	"github.com/mattandrews/blf-test-sub000/internal/session"
)

// Deps exposes the shared resources to Components during Init.
type Deps struct {
	Pending   application.PendingStore
	Submitted application.SubmittedStore
	Sessions  *session.Manager
	Mail      mail.Sender
	Log       *zap.Logger

	// CSRFSecret keys form tokens; at least 32 bytes.
	CSRFSecret string
	// PublicURL is the externally visible origin, used in emails.
	PublicURL string

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}
