// components/apply/handlers.go
//
// Apply – wizard handlers.
//
// Context
//   The handlers are thin.  Each one loads the applicant's pending
//   application, hands a snapshot of its step data to the form engine, and
//   writes the returned snapshot back.  Navigation rules, validation, and
//   progress all live in internal/form; nothing here decides whether an
//   answer is acceptable.
//
// Workflow
//   •  Start page   – collect the applicant's email, create the pending
//                    application, remember it in the session.
//   •  Step pages   – gate entry, validate the posted step, store the
//                    merged snapshot (valid or not), move to the next step
//                    that applies.
//   •  Review page  – list the answers, record the confirmation, submit.
//   •  Success page – show the reference and the application summary.
//
// Notes
//   •  An invalid step post is still stored, so the applicant's input
//      survives and the step shows as in progress.
//   •  Any step change clears the review confirmation.
//   •  Step posts accept JSON as well as HTML forms; JSON callers get JSON
//      back and send the CSRF token in the X-CSRF-Token header.
//
//------------------------------------------------------------------------------

package apply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/metrics"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
	"github.com/mattandrews/blf-test-sub000/internal/session"
	"github.com/mattandrews/blf-test-sub000/internal/summary"
)

var validate = validator.New()

type ctxKey int

const (
	sessionKey ctxKey = iota
	submitKey
)

// page is the data every template receives.  Pages use the parts they need.
type page struct {
	Locale    locale.Locale
	Title     string
	FormTitle string
	Base      string
	Path      string
	CSRF      string
	Errors    []form.FieldError
	Body      string

	// start
	Email  string
	Resume string

	// step
	Step     *form.Step
	Fields   template.HTML
	Progress form.Progress
	BackURL  string

	// review
	Sections     []form.ReviewSection
	ConfirmError string

	// success and listing
	Summary   summary.View
	Reference string
	AppsURL   string
	Apps      []appRow
}

// appRow is one entry of the applications listing.
type appRow struct {
	Status      string
	StatusLabel string
	URL         string
	Summary     summary.View
	Expires     string
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

// withSession makes sure every request has a session, so tokens can be bound
// to it from the first page on.
func (c *Component) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := c.deps.Sessions.Start(w, r)
		if err != nil {
			c.fail(w, r, err, "session start")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

// protect rejects state-changing requests without a valid CSRF token.
func (c *Component) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if !isJSON(r) {
			limit := int64(maxBodyBytes)
			if isMultipart(r) {
				limit = uploadLimit()
				if r.ContentLength > limit {
					bodyError(w, &http.MaxBytesError{Limit: limit})
					return
				}
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		tok := r.Header.Get(csrfHeader)
		if tok == "" && !isJSON(r) {
			if err := parseBody(r); err != nil {
				bodyError(w, err)
				return
			}
			tok = r.PostFormValue(csrfField)
		}
		if !c.csrf.Verify(tok, currentSession(r).ID) {
			c.log.Warn("apply: csrf token rejected", zap.String("path", r.URL.Path))
			http.Error(w, ui("sessionExpired").In(locale.FromContext(r.Context())), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentSession(r *http.Request) session.Session {
	s, _ := r.Context().Value(sessionKey).(session.Session)
	return s
}

// -----------------------------------------------------------------------------
// Start page
// -----------------------------------------------------------------------------

func (c *Component) getStart(w http.ResponseWriter, r *http.Request) {
	def, ok := c.definition(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	p, err := c.newPage(r, def)
	if err != nil {
		c.fail(w, r, err, "csrf token")
		return
	}
	p.Title = def.StartPage.Title.In(p.Locale)
	p.Body = def.StartPage.Body.In(p.Locale)
	p.Email = currentSession(r).Email

	rec, found, err := c.pending(r, def)
	if err != nil {
		c.fail(w, r, err, "load pending application")
		return
	}
	if found {
		n := def.Progress(rec.Data(), p.Locale).CurrentStepNumber
		p.Resume = stepURL(p.Base, n, def.TotalSteps())
	}
	c.render(w, r, http.StatusOK, "start", p)
}

func (c *Component) postStart(w http.ResponseWriter, r *http.Request) {
	def, ok := c.definition(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	l := locale.FromContext(r.Context())
	email := strings.ToLower(clean(r.PostFormValue("email")))

	if err := validate.Var(email, "required,email,max=320"); err != nil {
		metrics.ValidationFailuresTotal.WithLabelValues(def.ID, "start").Inc()
		p, perr := c.newPage(r, def)
		if perr != nil {
			c.fail(w, r, perr, "csrf token")
			return
		}
		p.Title = def.StartPage.Title.In(l)
		p.Body = def.StartPage.Body.In(l)
		p.Email = email
		p.Errors = []form.FieldError{{Name: "email", Label: ui("emailLabel").In(l), Message: ui("emailInvalid").In(l)}}
		c.render(w, r, http.StatusBadRequest, "start", p)
		return
	}

	s := currentSession(r)
	if s.Email != "" && s.Email != email {
		// A different applicant on the same browser: forget the last one.
		s = session.Session{ID: s.ID, CreatedAt: s.CreatedAt}
	}

	base := basePath(r)
	if rec, found, err := c.pendingFor(r, s, def); err != nil {
		c.fail(w, r, err, "load pending application")
		return
	} else if found {
		n := def.Progress(rec.Data(), l).CurrentStepNumber
		http.Redirect(w, r, stepURL(base, n, def.TotalSteps()), http.StatusSeeOther)
		return
	}

	rec, err := c.deps.Pending.Create(r.Context(), application.Pending{
		FormID:     def.ID,
		OwnerEmail: email,
		Locale:     string(l),
	})
	if err != nil {
		c.fail(w, r, err, "create pending application")
		return
	}

	s.Email = email
	s.Locale = string(l)
	s = s.WithPending(def.ID, rec.ID)
	if err := c.deps.Sessions.Save(w, r, s); err != nil {
		c.fail(w, r, err, "save session")
		return
	}

	c.log.Info("apply: application started",
		zap.String("form", def.ID),
		zap.String("application_id", rec.ID),
	)
	first := def.Next(0, rec.Data(), l)
	http.Redirect(w, r, stepURL(base, first, def.TotalSteps()), http.StatusSeeOther)
}

// -----------------------------------------------------------------------------
// Step pages
// -----------------------------------------------------------------------------

func (c *Component) getStep(w http.ResponseWriter, r *http.Request) {
	def, rec, n, ok := c.enterStep(w, r)
	if !ok {
		return
	}
	c.renderStep(w, r, def, rec.Data(), n, nil, http.StatusOK)
}

func (c *Component) postStep(w http.ResponseWriter, r *http.Request) {
	def, rec, n, ok := c.enterStep(w, r)
	if !ok {
		return
	}
	l := locale.FromContext(r.Context())
	sd, _ := def.Step(n)

	raw, err := decodeBody(r)
	if err != nil {
		bodyError(w, err)
		return
	}
	asJSON := isJSON(r)
	if !asJSON {
		normaliseStepPost(sd, raw)
	}

	full := rec.Data()
	res := def.ValidateStep(n, raw, full, l)
	if !res.Valid() {
		metrics.ValidationFailuresTotal.WithLabelValues(def.ID, sd.ID).Inc()
		full = withoutReview(full.Merge(form.StepKey(n), raw))
	} else {
		full = withoutReview(full.WithStep(n, res.Value))
	}

	rec.Locale = string(l)
	if _, err := c.deps.Pending.Update(r.Context(), rec.WithData(full)); err != nil {
		c.fail(w, r, err, "update pending application")
		return
	}

	if !res.Valid() {
		errs := def.FieldErrors(res, full, l)
		if asJSON {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
			return
		}
		c.renderStep(w, r, def, full, n, errs, http.StatusBadRequest)
		return
	}

	next := def.Next(n, full, l)
	if asJSON {
		writeJSON(w, http.StatusOK, map[string]any{
			"next":     next,
			"progress": def.Progress(full, l),
		})
		return
	}
	http.Redirect(w, r, stepURL(basePath(r), next, def.TotalSteps()), http.StatusSeeOther)
}

// enterStep resolves the form, the pending application, and the step
// number, redirecting when the step may not be shown.  ok is false when a
// response has already been written.
func (c *Component) enterStep(w http.ResponseWriter, r *http.Request) (*form.Definition, application.Pending, int, bool) {
	def, ok := c.definition(r)
	if !ok {
		http.NotFound(w, r)
		return nil, application.Pending{}, 0, false
	}
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || n < 1 || n > def.TotalSteps() {
		http.NotFound(w, r)
		return nil, application.Pending{}, 0, false
	}
	rec, found, err := c.pending(r, def)
	if err != nil {
		c.fail(w, r, err, "load pending application")
		return nil, application.Pending{}, 0, false
	}
	base := basePath(r)
	if !found {
		http.Redirect(w, r, base, http.StatusSeeOther)
		return nil, application.Pending{}, 0, false
	}
	l := locale.FromContext(r.Context())
	if to, allowed := def.Enter(n, rec.Data(), l); !allowed {
		http.Redirect(w, r, stepURL(base, to, def.TotalSteps()), http.StatusSeeOther)
		return nil, application.Pending{}, 0, false
	}
	return def, rec, n, true
}

func (c *Component) renderStep(w http.ResponseWriter, r *http.Request, def *form.Definition,
	full form.Data, n int, errs []form.FieldError, status int) {
	p, err := c.newPage(r, def)
	if err != nil {
		c.fail(w, r, err, "csrf token")
		return
	}
	f := def.Build(full, p.Locale)
	st, _ := f.Step(n)

	msgs := make(map[string]string, len(errs))
	for _, e := range errs {
		msgs[e.Name] = e.Message
	}
	p.Title = st.Title
	p.Step = st
	p.Fields = renderFields(st, msgs, p.Locale)
	p.Progress = f.Progress
	p.Errors = errs
	p.BackURL = stepURL(p.Base, def.Previous(n, full, p.Locale), def.TotalSteps())
	c.render(w, r, status, "step", p)
}

// -----------------------------------------------------------------------------
// Review and submission
// -----------------------------------------------------------------------------

func (c *Component) getReview(w http.ResponseWriter, r *http.Request) {
	def, rec, ok := c.enterReview(w, r)
	if !ok {
		return
	}
	c.renderReview(w, r, def, rec.Data(), "", http.StatusOK)
}

// submitState carries the applicant through Definition.Submit to the
// processor, and the stored reference back.
type submitState struct {
	owner       string
	pendingID   string
	submittedID string
}

func (c *Component) postReview(w http.ResponseWriter, r *http.Request) {
	def, rec, ok := c.enterReview(w, r)
	if !ok {
		return
	}
	l := locale.FromContext(r.Context())
	raw, err := decodeBody(r)
	if err != nil {
		bodyError(w, err)
		return
	}

	full := rec.Data()
	if v, _ := schema.AsString(raw["confirm"]); v != "yes" {
		metrics.ValidationFailuresTotal.WithLabelValues(def.ID, form.ReviewKey).Inc()
		c.renderReview(w, r, def, full, ui("confirmRequired").In(l), http.StatusBadRequest)
		return
	}

	full = full.With(form.ReviewKey, map[string]any{
		"confirmed":   true,
		"confirmedAt": c.deps.Now().UTC().Format(time.RFC3339),
	})
	rec.Locale = string(l)
	if rec, err = c.deps.Pending.Update(r.Context(), rec.WithData(full)); err != nil {
		c.fail(w, r, err, "update pending application")
		return
	}

	st := &submitState{owner: rec.OwnerEmail, pendingID: rec.ID}
	_, err = def.Submit(context.WithValue(r.Context(), submitKey, st), full, l)
	base := basePath(r)
	switch {
	case err == nil:
		metrics.SubmissionsTotal.WithLabelValues(def.ID, "success").Inc()
		s := currentSession(r).WithPending(def.ID, "")
		if err := c.deps.Sessions.Save(w, r, s); err != nil {
			c.log.Warn("apply: session update after submit failed", zap.Error(err))
		}
		c.log.Info("apply: application submitted",
			zap.String("form", def.ID),
			zap.String("application_id", rec.ID),
			zap.String("submission_id", st.submittedID),
		)
		http.Redirect(w, r, base+"/success/"+st.submittedID, http.StatusSeeOther)

	case form.IsValidationError(err):
		// Enter let us in, so the snapshot changed underneath us (another
		// tab).  Send the applicant to the first answer that needs work.
		metrics.SubmissionsTotal.WithLabelValues(def.ID, "invalid").Inc()
		target := def.TotalSteps() + 1
		if fields := form.ValidationFields(err); len(fields) > 0 && fields[0].Step > 0 {
			target = fields[0].Step
		}
		http.Redirect(w, r, stepURL(base, target, def.TotalSteps()), http.StatusSeeOther)

	default:
		metrics.SubmissionsTotal.WithLabelValues(def.ID, "error").Inc()
		c.log.Error("apply: submission failed",
			zap.String("form", def.ID),
			zap.String("application_id", rec.ID),
			zap.Error(err),
		)
		p, perr := c.newPage(r, def)
		if perr != nil {
			c.fail(w, r, perr, "csrf token")
			return
		}
		p.Title = def.Error.Title.In(l)
		p.Body = def.Error.Body.In(l)
		c.render(w, r, http.StatusInternalServerError, "error", p)
	}
}

func (c *Component) enterReview(w http.ResponseWriter, r *http.Request) (*form.Definition, application.Pending, bool) {
	def, ok := c.definition(r)
	if !ok {
		http.NotFound(w, r)
		return nil, application.Pending{}, false
	}
	rec, found, err := c.pending(r, def)
	if err != nil {
		c.fail(w, r, err, "load pending application")
		return nil, application.Pending{}, false
	}
	base := basePath(r)
	if !found {
		http.Redirect(w, r, base, http.StatusSeeOther)
		return nil, application.Pending{}, false
	}
	review := def.TotalSteps() + 1
	if to, allowed := def.Enter(review, rec.Data(), locale.FromContext(r.Context())); !allowed {
		http.Redirect(w, r, stepURL(base, to, def.TotalSteps()), http.StatusSeeOther)
		return nil, application.Pending{}, false
	}
	return def, rec, true
}

func (c *Component) renderReview(w http.ResponseWriter, r *http.Request, def *form.Definition,
	full form.Data, confirmErr string, status int) {
	p, err := c.newPage(r, def)
	if err != nil {
		c.fail(w, r, err, "csrf token")
		return
	}
	review := def.TotalSteps() + 1
	p.Title = def.ReviewPage.Title.In(p.Locale)
	p.Body = def.ReviewPage.Body.In(p.Locale)
	p.Sections = def.Review(full, p.Locale)
	p.ConfirmError = confirmErr
	p.BackURL = stepURL(p.Base, def.Previous(review, full, p.Locale), def.TotalSteps())
	c.render(w, r, status, "review", p)
}

// process is the “apply-submit” success processor.  Storing the submission
// is the only step that can fail it; cleanup and the confirmation email are
// best effort.
func (c *Component) process(ctx context.Context, sub form.Submission) error {
	st, ok := ctx.Value(submitKey).(*submitState)
	if !ok {
		return errors.New("apply: submission carries no applicant")
	}

	rec, err := c.deps.Submitted.Create(ctx, application.NewSubmitted(st.owner, sub))
	if err != nil {
		return fmt.Errorf("store submission: %w", err)
	}
	st.submittedID = rec.ID

	if err := c.deps.Pending.Delete(ctx, st.pendingID); err != nil && !errors.Is(err, application.ErrNotFound) {
		// The expiry runner removes it eventually.
		c.log.Error("apply: pending cleanup failed", zap.String("application_id", st.pendingID), zap.Error(err))
	}

	msg, err := confirmation(rec, sub.Locale, c.deps.PublicURL)
	if err != nil {
		c.log.Error("apply: confirmation email build failed", zap.Error(err))
		return nil
	}
	if _, err := c.deps.Mail.Send(ctx, msg); err != nil {
		c.log.Warn("apply: confirmation email failed", zap.String("submission_id", rec.ID), zap.Error(err))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Success page and listings
// -----------------------------------------------------------------------------

func (c *Component) getSuccess(w http.ResponseWriter, r *http.Request) {
	def, ok := c.definition(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	rec, err := c.deps.Submitted.FindByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, application.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		c.fail(w, r, err, "load submission")
		return
	}
	if rec.FormID != def.ID || rec.OwnerEmail != currentSession(r).Email {
		http.NotFound(w, r)
		return
	}

	p, err := c.newPage(r, def)
	if err != nil {
		c.fail(w, r, err, "csrf token")
		return
	}
	p.Title = def.Success.Title.In(p.Locale)
	p.Body = def.Success.Body.In(p.Locale)
	p.Reference = rec.ID
	p.Summary = summary.Build(rec, p.Locale)
	p.AppsURL = "/" + c.Name() + "/"
	c.render(w, r, http.StatusOK, "success", p)
}

func (c *Component) listApplications(w http.ResponseWriter, r *http.Request) {
	p, err := c.newPage(r, nil)
	if err != nil {
		c.fail(w, r, err, "csrf token")
		return
	}
	l := p.Locale
	s := currentSession(r)
	p.Title = ui("yourApps").In(l)

	formIDs := make([]string, 0, len(s.Applications))
	for id := range s.Applications {
		formIDs = append(formIDs, id)
	}
	sort.Strings(formIDs)
	for _, formID := range formIDs {
		rec, err := c.deps.Pending.FindByID(r.Context(), s.Applications[formID])
		if errors.Is(err, application.ErrNotFound) {
			continue
		}
		if err != nil {
			c.fail(w, r, err, "load pending application")
			return
		}
		p.Apps = append(p.Apps, appRow{
			Status:      "pending",
			StatusLabel: ui("inProgress").In(l),
			URL:         "/" + c.Name() + "/" + strings.TrimPrefix(formID, Namespace),
			Summary:     summary.Build(rec, l),
			Expires:     fmt.Sprintf(ui("expires").In(l), locale.Date(rec.ExpiresAt, l)),
		})
	}

	if s.Email != "" {
		subs, err := c.deps.Submitted.FindByOwner(r.Context(), s.Email)
		if err != nil {
			c.fail(w, r, err, "load submissions")
			return
		}
		for _, rec := range subs {
			p.Apps = append(p.Apps, appRow{
				Status:      "submitted",
				StatusLabel: ui("submitted").In(l),
				Summary:     summary.Build(rec, l),
			})
		}
	}
	c.render(w, r, http.StatusOK, "applications", p)
}

func (c *Component) getProgress(w http.ResponseWriter, r *http.Request) {
	def, rec, ok := c.jsonPending(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, def.Progress(rec.Data(), locale.FromContext(r.Context())))
}

func (c *Component) getSummary(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := c.jsonPending(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summary.Build(rec, locale.FromContext(r.Context())))
}

func (c *Component) jsonPending(w http.ResponseWriter, r *http.Request) (*form.Definition, application.Pending, bool) {
	def, ok := c.definition(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown form"})
		return nil, application.Pending{}, false
	}
	rec, found, err := c.pending(r, def)
	if err != nil {
		c.log.Error("apply: load pending application", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, application.Pending{}, false
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no application in progress"})
		return nil, application.Pending{}, false
	}
	return def, rec, true
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// pending returns the session's pending application for def.
func (c *Component) pending(r *http.Request, def *form.Definition) (application.Pending, bool, error) {
	return c.pendingFor(r, currentSession(r), def)
}

// pendingFor returns the pending application s holds for def.  A record
// that has expired, been submitted, or belongs to someone else is treated as
// absent.
func (c *Component) pendingFor(r *http.Request, s session.Session, def *form.Definition) (application.Pending, bool, error) {
	id, ok := s.Pending(def.ID)
	if !ok {
		return application.Pending{}, false, nil
	}
	rec, err := c.deps.Pending.FindByID(r.Context(), id)
	if errors.Is(err, application.ErrNotFound) {
		return application.Pending{}, false, nil
	}
	if err != nil {
		return application.Pending{}, false, err
	}
	if rec.OwnerEmail != s.Email || rec.FormID != def.ID {
		return application.Pending{}, false, nil
	}
	return rec, true, nil
}

func (c *Component) newPage(r *http.Request, def *form.Definition) (page, error) {
	tok, err := c.csrf.Token(currentSession(r).ID)
	if err != nil {
		return page{}, err
	}
	p := page{
		Locale: locale.FromContext(r.Context()),
		Path:   r.URL.Path,
		CSRF:   tok,
	}
	if def != nil {
		p.FormTitle = def.Title.In(p.Locale)
		p.Base = basePath(r)
	}
	return p, nil
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if err := c.views.Render(w, status, name, p); err != nil {
		c.fail(w, r, err, "render "+name)
	}
}

// fail logs err and answers with a generic 500.  Internal detail never
// reaches the applicant.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	c.log.Error("apply: "+what, zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// basePath is the URL of the current form's start page.
func basePath(r *http.Request) string {
	return "/apply/" + chi.URLParam(r, "form")
}

// stepURL maps a wizard position to its URL: 0 is the start page and
// total+1 the review page.
func stepURL(base string, n, total int) string {
	switch {
	case n < 1:
		return base
	case n > total:
		return base + "/review"
	default:
		return base + "/step/" + strconv.Itoa(n)
	}
}

func withoutReview(d form.Data) form.Data {
	out := d.Clone()
	delete(out, form.ReviewKey)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
