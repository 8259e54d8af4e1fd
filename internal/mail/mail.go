// internal/mail/mail.go
//
// Apply – outbound email.
//
// Context
//   Reminder emails for pending applications, and any confirmation a form
//   processor wants to send, go through one small interface.  Production
//   uses Amazon SES (ses.go).  Local development and tests use LogSender,
//   which records the message through zap and reports success.
//
//   A Sender returns only after the provider accepted the message.  Callers
//   treat a nil error as a confirmed send and may persist state on that
//   basis, so implementations must never report success optimistically.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Email is one outbound message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Receipt identifies an accepted message.
type Receipt struct {
	MessageID string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, e Email) (Receipt, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, e Email) (Receipt, error)

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, e Email) (Receipt, error) { return f(ctx, e) }

// ErrInvalid is returned for a message that could never be delivered.
var ErrInvalid = errors.New("mail: invalid message")

// Check reports whether e has a recipient, a subject, and a body.
func (e Email) Check() error {
	switch {
	case len(e.To) == 0:
		return errors.Join(ErrInvalid, errors.New("no recipient"))
	case strings.TrimSpace(e.Subject) == "":
		return errors.Join(ErrInvalid, errors.New("no subject"))
	case e.HTML == "" && e.Text == "":
		return errors.Join(ErrInvalid, errors.New("no body"))
	}
	for _, to := range e.To {
		if !strings.Contains(to, "@") {
			return errors.Join(ErrInvalid, errors.New("bad recipient "+to))
		}
	}
	return nil
}

// LogSender writes the message to the logger instead of sending it.
type LogSender struct {
	Log *zap.Logger
}

// Send implements Sender.
func (s LogSender) Send(ctx context.Context, e Email) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := e.Check(); err != nil {
		return Receipt{}, err
	}
	log := s.Log
	if log == nil {
		log = zap.L()
	}
	id := uuid.NewString()
	log.Info("mail: send",
		zap.String("message_id", id),
		zap.Strings("to", e.To),
		zap.String("subject", e.Subject),
		zap.Int("text_len", len(e.Text)),
		zap.Int("html_len", len(e.HTML)),
	)
	return Receipt{MessageID: id}, nil
}
