// components/apply/component.go
//
// Apply – the application form component.
//
// Context
//   Mounted at “/apply”, this component serves every registered form under
//   “/apply/{form}”, where {form} is the part of the form ID after the
//   “apply/” namespace.  Forms ship embedded under forms/; extra definitions
//   can be layered in from disk via apply.forms_dirs.
//
// Workflow
//   •  init() registers the component.
//   •  Init(deps) keeps the shared stores, binds the “apply-submit”
//      processor, and registers the embedded definitions.
//   •  Routes() wires the wizard pages and the JSON helpers behind the
//      session and CSRF middleware.
//
//------------------------------------------------------------------------------

package apply

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/component"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/metrics"
	"github.com/mattandrews/blf-test-sub000/internal/view"
)

// Namespace prefixes every form ID this component serves.
const Namespace = "apply/"

// ProcessorName is the success processor the shipped forms name.
const ProcessorName = "apply-submit"

//go:embed forms/*.yaml
var formsFS embed.FS

//go:embed templates/*.html
var templatesFS embed.FS

// Component implements component.Component.
type Component struct {
	deps  component.Deps
	csrf  *CSRF
	views *view.Engine
	log   *zap.Logger
}

func init() { component.Register(&Component{}) }

// Name returns the mount prefix.
func (c *Component) Name() string { return "apply" }

// Migrations creates the application tables.
func (c *Component) Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS pending_application (
    id               CHAR(36)     PRIMARY KEY,
    form_id          VARCHAR(128) NOT NULL,
    owner_email      VARCHAR(320) NOT NULL,
    locale           VARCHAR(8)   NOT NULL DEFAULT 'en',
    application_data JSON         NOT NULL,
    reminder_stage   VARCHAR(32)  NOT NULL DEFAULT '',
    expires_at       TIMESTAMP    NOT NULL,
    created_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_pending_expires (expires_at)
)`,
		`CREATE TABLE IF NOT EXISTS submitted_application (
    id                    CHAR(36)     PRIMARY KEY,
    form_id               VARCHAR(128) NOT NULL,
    owner_email           VARCHAR(320) NOT NULL,
    salesforce_submission JSON         NOT NULL,
    created_at            TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_submitted_owner (owner_email)
)`,
	}
}

// Init binds the shared resources and registers the embedded forms.
func (c *Component) Init(deps component.Deps) error {
	if deps.Pending == nil || deps.Submitted == nil || deps.Sessions == nil || deps.Mail == nil {
		return errors.New("apply: stores, sessions, and mail are required")
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	csrf, err := NewCSRF(deps.CSRFSecret)
	if err != nil {
		return err
	}
	csrf.Now = deps.Now

	c.deps = deps
	c.csrf = csrf
	c.log = deps.Log.Named("apply")
	c.views = view.New(template.FuncMap{
		"t": func(key string, l locale.Locale) string { return ui(key).In(l) },
		"tf": func(key string, l locale.Locale, args ...any) string {
			return fmt.Sprintf(ui(key).In(l), args...)
		},
	}, mustSub(templatesFS, "templates"))

	form.RegisterProcessor(ProcessorName, form.ProcessorFunc(c.process))
	if err := form.RegisterFS(formsFS, "forms"); err != nil {
		return err
	}
	metrics.FormsLoaded.Set(float64(len(form.IDs())))
	c.log.Info("apply: forms registered", zap.Strings("forms", form.IDs()))
	return nil
}

// Routes mounts the wizard.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(locale.Middleware, c.withSession, c.protect)

	r.Get("/", c.listApplications)
	r.Route("/{form}", func(fr chi.Router) {
		fr.Get("/", c.getStart)
		fr.Post("/", c.postStart)
		fr.Get("/step/{step}", c.getStep)
		fr.Post("/step/{step}", c.postStep)
		fr.Get("/review", c.getReview)
		fr.Post("/review", c.postReview)
		fr.Get("/success/{id}", c.getSuccess)
		fr.Get("/progress.json", c.getProgress)
		fr.Get("/summary.json", c.getSummary)
	})
	return r
}

// definition resolves the {form} URL parameter.
func (c *Component) definition(r *http.Request) (*form.Definition, bool) {
	return form.Get(Namespace + chi.URLParam(r, "form"))
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
