// components/apply/apply_test.go
//
// End-to-end tests for the application wizard over httptest, backed by the
// in-memory stores.
//
// Run: go test ./components/apply -v

package apply

import (
	"context"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/component"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
	"github.com/mattandrews/blf-test-sub000/internal/session"
)

const (
	formPath  = "/apply/awards-for-all"
	applicant = "ann@example.com"
)

var fixedNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// failingSubmitted refuses every new submission.
type failingSubmitted struct {
	application.SubmittedStore
}

func (failingSubmitted) Create(context.Context, application.Submitted) (application.Submitted, error) {
	return application.Submitted{}, errors.New("database unavailable")
}

type ApplySuite struct {
	suite.Suite

	store    *application.MemoryStore
	sessions *session.MemoryStore
	deps     component.Deps
	router   http.Handler
	srv      *httptest.Server
	client   *http.Client

	mu   sync.Mutex
	sent []mail.Email
}

func TestApplySuite(t *testing.T) {
	suite.Run(t, new(ApplySuite))
}

func (s *ApplySuite) SetupTest() {
	s.store = application.NewMemoryStore(0)
	s.store.Now = func() time.Time { return fixedNow }
	s.sessions = &session.MemoryStore{}
	s.sent = nil
	s.deps = component.Deps{
		Pending:   s.store.Pending(),
		Submitted: s.store.Submitted(),
		Sessions:  &session.Manager{Store: s.sessions},
		Mail: mail.SenderFunc(func(_ context.Context, e mail.Email) (mail.Receipt, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.sent = append(s.sent, e)
			return mail.Receipt{MessageID: "test"}, nil
		}),
		Log:        zap.NewNop(),
		CSRFSecret: strings.Repeat("k", 32),
		PublicURL:  "https://apply.example.org",
	}
	s.mount(s.deps)
}

func (s *ApplySuite) TearDownTest() {
	s.srv.Close()
}

// mount starts a fresh server for deps, replacing any earlier one.
func (s *ApplySuite) mount(deps component.Deps) {
	if s.srv != nil {
		s.srv.Close()
	}
	c := &Component{}
	s.Require().NoError(c.Init(deps))
	def, ok := form.Get(Namespace + "awards-for-all")
	s.Require().True(ok)
	def.Clock = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	r.Mount("/"+c.Name(), c.Routes())
	s.router = r
	s.srv = httptest.NewServer(r)

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *ApplySuite) get(path string) (*http.Response, string) {
	res, err := s.client.Get(s.srv.URL + path)
	s.Require().NoError(err)
	return res, s.body(res)
}

func (s *ApplySuite) post(path string, values url.Values) (*http.Response, string) {
	res, err := s.client.PostForm(s.srv.URL+path, values)
	s.Require().NoError(err)
	return res, s.body(res)
}

func (s *ApplySuite) postJSON(path, token string, v any) (*http.Response, string) {
	raw, err := json.Marshal(v)
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, strings.NewReader(string(raw)))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeader, token)
	res, err := s.client.Do(req)
	s.Require().NoError(err)
	return res, s.body(res)
}

func (s *ApplySuite) body(res *http.Response) string {
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	return string(raw)
}

// token loads path and returns the CSRF token rendered into it.
func (s *ApplySuite) token(path string) string {
	_, body := s.get(path)
	m := csrfPattern.FindStringSubmatch(body)
	s.Require().Len(m, 2, "no csrf token on %s", path)
	return m[1]
}

// start begins an application as the test applicant.
func (s *ApplySuite) start() {
	tok := s.token(formPath)
	res, _ := s.post(formPath, url.Values{csrfField: {tok}, "email": {applicant}})
	s.Require().Equal(http.StatusSeeOther, res.StatusCode)
	s.Require().Equal(formPath+"/step/1", res.Header.Get("Location"))
}

// pendingRecord returns the application the test browser's session holds.
func (s *ApplySuite) pendingRecord() application.Pending {
	u, err := url.Parse(s.srv.URL)
	s.Require().NoError(err)
	var sid string
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			sid = c.Value
		}
	}
	s.Require().NotEmpty(sid)
	sess, err := s.sessions.Load(context.Background(), sid)
	s.Require().NoError(err)
	id, ok := sess.Pending(Namespace + "awards-for-all")
	s.Require().True(ok)
	rec, err := s.store.Pending().FindByID(context.Background(), id)
	s.Require().NoError(err)
	return rec
}

// seedComplete stores answers for every step that applies to a statutory
// body in England.
func (s *ApplySuite) seedComplete() application.Pending {
	words := strings.TrimSpace(strings.Repeat("growing food together ", 20))
	rec := s.pendingRecord().WithData(form.Data{
		"step-1": {
			"projectName": "Community garden",
			"projectDateRange": map[string]any{
				"startDate": map[string]any{"day": "1", "month": "9", "year": "2025"},
				"endDate":   map[string]any{"day": "31", "month": "3", "year": "2026"},
			},
			"projectCountry":  "england",
			"projectPostcode": "B15 1TR",
		},
		"step-2": {"beneficiariesGroupsCheck": "no"},
		"step-3": {"yourIdeaProject": words, "yourIdeaCommunity": words},
		"step-4": {
			"projectBudget": []any{
				map[string]any{"item": "Plants", "cost": "2000"},
				map[string]any{"item": "Tools", "cost": "1500"},
			},
			"projectTotalCosts": "4000",
		},
		"step-5": {
			"organisationLegalName": "Ashford Parish Council",
			"organisationAddress": map[string]any{
				"line1": "1 Church Street", "townCity": "Ashford", "postcode": "TN23 1AA",
			},
			"organisationType":      "statutory-body",
			"organisationSubType":   "parish-council",
			"organisationStartDate": map[string]any{"month": "4", "year": "1990"},
			"accountingYearDate":    map[string]any{"day": "31", "month": "3"},
			"totalIncomeYear":       "250000",
			"previousFunding":       "no",
		},
		"step-7": {
			"mainContactName":  map[string]any{"firstName": "Ann", "lastName": "Jones"},
			"mainContactEmail": "ann@example.com",
			"mainContactPhone": "0121 496 0000",
		},
		"step-8": {
			"seniorContactRole":  "parish-clerk",
			"seniorContactName":  map[string]any{"firstName": "Bob", "lastName": "Evans"},
			"seniorContactEmail": "bob@example.com",
			"seniorContactPhone": "020 7946 0000",
		},
		"step-10": {
			"termsAgreement":      []any{"agreed"},
			"termsPersonName":     "Ann Jones",
			"termsPersonPosition": "Clerk",
		},
	})
	rec, err := s.store.Pending().Update(context.Background(), rec)
	s.Require().NoError(err)
	return rec
}

// -----------------------------------------------------------------------------
// Start page
// -----------------------------------------------------------------------------

func (s *ApplySuite) TestStartRejectsInvalidEmail() {
	tok := s.token(formPath)
	res, body := s.post(formPath, url.Values{csrfField: {tok}, "email": {"not-an-email"}})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Contains(body, "Enter a real email address")
	s.Contains(body, `href="#fld-email"`)
}

func (s *ApplySuite) TestStartCreatesApplication() {
	s.start()
	rec := s.pendingRecord()
	s.Equal(applicant, rec.OwnerEmail)
	s.Equal("apply/awards-for-all", rec.FormID)
	s.Equal("en", rec.Locale)

	_, body := s.get(formPath)
	s.Contains(body, formPath+"/step/1", "start page offers to resume")
}

func (s *ApplySuite) TestPostWithoutTokenIsForbidden() {
	s.token(formPath)
	res, _ := s.post(formPath, url.Values{"email": {applicant}})
	s.Equal(http.StatusForbidden, res.StatusCode)

	res, _ = s.post(formPath, url.Values{csrfField: {"forged"}, "email": {applicant}})
	s.Equal(http.StatusForbidden, res.StatusCode)
}

func (s *ApplySuite) TestWelshStartPage() {
	_, body := s.get(formPath + "?lang=cy")
	s.Contains(body, `<html lang="cy">`)
	s.Contains(body, "Gwneud cais am arian")
	s.Contains(body, "Dechrau eich cais")

	// The choice sticks without the query string.
	_, body = s.get(formPath)
	s.Contains(body, "Gwneud cais am arian")
}

// -----------------------------------------------------------------------------
// Steps
// -----------------------------------------------------------------------------

func (s *ApplySuite) TestStepsNeedAnApplication() {
	res, _ := s.get(formPath + "/step/1")
	s.Equal(http.StatusSeeOther, res.StatusCode)
	s.Equal(formPath, res.Header.Get("Location"))
}

func (s *ApplySuite) TestLaterStepsAreGated() {
	s.start()
	res, _ := s.get(formPath + "/step/3")
	s.Equal(http.StatusSeeOther, res.StatusCode)
	s.Equal(formPath+"/step/1", res.Header.Get("Location"))

	res, _ = s.get(formPath + "/review")
	s.Equal(formPath+"/step/1", res.Header.Get("Location"))

	res, _ = s.get(formPath + "/step/99")
	s.Equal(http.StatusNotFound, res.StatusCode)
}

func (s *ApplySuite) TestInvalidStepKeepsAnswers() {
	s.start()
	tok := s.token(formPath + "/step/1")

	res, body := s.post(formPath+"/step/1", url.Values{
		csrfField:     {tok},
		"projectName": {"Community garden"},
	})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Contains(body, "There is a problem")
	s.Contains(body, `value="Community garden"`)

	rec := s.pendingRecord()
	s.Equal("Community garden", rec.Data().Step(1)["projectName"])

	_, raw := s.get(formPath + "/progress.json")
	var p form.Progress
	s.Require().NoError(json.Unmarshal([]byte(raw), &p))
	s.Equal(1, p.CurrentStepNumber)
	s.Equal(form.StateInProgress, p.Steps[0].State)
}

func (s *ApplySuite) TestValidStepAdvances() {
	s.start()
	tok := s.token(formPath + "/step/1")

	res, _ := s.post(formPath+"/step/1", url.Values{
		csrfField:                            {tok},
		"projectName":                        {"Community <b>garden</b>"},
		"projectDateRange[startDate][day]":   {"1"},
		"projectDateRange[startDate][month]": {"9"},
		"projectDateRange[startDate][year]":  {"2025"},
		"projectDateRange[endDate][day]":     {"31"},
		"projectDateRange[endDate][month]":   {"3"},
		"projectDateRange[endDate][year]":    {"2026"},
		"projectCountry":                     {"england"},
		"projectPostcode":                    {"b15 1tr"},
	})
	s.Equal(http.StatusSeeOther, res.StatusCode)
	s.Equal(formPath+"/step/2", res.Header.Get("Location"))

	step := s.pendingRecord().Data().Step(1)
	s.Equal("Community garden", step["projectName"])
	s.Equal("england", step["projectCountry"])
}

func (s *ApplySuite) TestJSONStepPost() {
	s.start()
	tok := s.token(formPath + "/step/1")

	res, body := s.postJSON(formPath+"/step/2", tok, map[string]any{"beneficiariesGroupsCheck": "no"})
	s.Equal(http.StatusSeeOther, res.StatusCode, "step 2 is gated behind step 1: %s", body)

	res, body = s.postJSON(formPath+"/step/1", tok, map[string]any{"projectName": ""})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	var failed struct {
		Errors []form.FieldError `json:"errors"`
	}
	s.Require().NoError(json.Unmarshal([]byte(body), &failed))
	s.NotEmpty(failed.Errors)
}

func (s *ApplySuite) TestChangingAStepClearsConfirmation() {
	s.start()
	rec := s.seedComplete()
	rec = rec.WithData(rec.Data().With(form.ReviewKey, map[string]any{"confirmed": true}))
	_, err := s.store.Pending().Update(context.Background(), rec)
	s.Require().NoError(err)

	tok := s.token(formPath + "/step/2")
	res, _ := s.post(formPath+"/step/2", url.Values{csrfField: {tok}, "beneficiariesGroupsCheck": {"no"}})
	s.Equal(http.StatusSeeOther, res.StatusCode)
	s.Equal(formPath+"/step/3", res.Header.Get("Location"))
	s.False(s.pendingRecord().Data().Has(form.ReviewKey))
}

// -----------------------------------------------------------------------------
// Review and submission
// -----------------------------------------------------------------------------

func (s *ApplySuite) TestReviewListsAnswers() {
	s.start()
	s.seedComplete()

	res, body := s.get(formPath + "/review")
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.Contains(body, "Check your answers")
	s.Contains(body, "Community garden")
	s.Contains(body, "£3,500")
	s.NotContains(body, "Bank details", "steps that do not apply are left out")
}

func (s *ApplySuite) TestReviewNeedsConfirmation() {
	s.start()
	s.seedComplete()
	tok := s.token(formPath + "/review")

	res, body := s.post(formPath+"/review", url.Values{csrfField: {tok}})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Contains(body, "Confirm your answers before submitting")
	s.Empty(s.sent)
}

func (s *ApplySuite) TestSubmit() {
	s.start()
	pending := s.seedComplete()
	tok := s.token(formPath + "/review")

	res, _ := s.post(formPath+"/review", url.Values{csrfField: {tok}, "confirm": {"yes"}})
	s.Require().Equal(http.StatusSeeOther, res.StatusCode)
	loc := res.Header.Get("Location")
	s.True(strings.HasPrefix(loc, formPath+"/success/"), loc)

	subs, err := s.store.Submitted().FindByOwner(context.Background(), applicant)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	sub := subs[0]
	s.Equal(formPath+"/success/"+sub.ID, loc)
	s.Equal("Community garden", sub.Answers()["projectName"])

	_, err = s.store.Pending().FindByID(context.Background(), pending.ID)
	s.ErrorIs(err, application.ErrNotFound)

	s.Require().Len(s.sent, 1)
	s.Equal([]string{applicant}, s.sent[0].To)
	s.Contains(s.sent[0].Text, sub.ID)
	s.Contains(s.sent[0].Text, "https://apply.example.org/apply/")

	res, body := s.get(loc)
	s.Equal(http.StatusOK, res.StatusCode)
	s.Contains(body, "Your reference is "+sub.ID)
	s.Contains(body, "£3,500")

	_, body = s.get("/apply/")
	s.Contains(body, "Submitted")
	s.NotContains(body, "In progress")
}

func (s *ApplySuite) TestSubmitFailureKeepsApplication() {
	deps := s.deps
	deps.Submitted = failingSubmitted{s.store.Submitted()}
	s.mount(deps)

	s.start()
	pending := s.seedComplete()
	tok := s.token(formPath + "/review")

	res, body := s.post(formPath+"/review", url.Values{csrfField: {tok}, "confirm": {"yes"}})
	s.Equal(http.StatusInternalServerError, res.StatusCode)
	s.Contains(body, "There was a problem submitting your application")
	s.NotContains(body, "database unavailable")

	_, err := s.store.Pending().FindByID(context.Background(), pending.ID)
	s.NoError(err)
	s.Empty(s.sent)
}

func (s *ApplySuite) TestSuccessPageIsPrivate() {
	sub, err := s.store.Submitted().Create(context.Background(), application.Submitted{
		FormID:     "apply/awards-for-all",
		OwnerEmail: "someone-else@example.com",
	})
	s.Require().NoError(err)

	s.start()
	res, _ := s.get(formPath + "/success/" + sub.ID)
	s.Equal(http.StatusNotFound, res.StatusCode)
}

// -----------------------------------------------------------------------------
// Listings and JSON helpers
// -----------------------------------------------------------------------------

func (s *ApplySuite) TestApplicationsListing() {
	_, body := s.get("/apply/")
	s.Contains(body, "You have no applications yet")

	s.start()
	s.seedComplete()
	_, body = s.get("/apply/")
	s.Contains(body, "In progress")
	s.Contains(body, "Community garden")
	s.Contains(body, `href="/apply/awards-for-all"`)
}

func (s *ApplySuite) TestSummaryJSON() {
	res, _ := s.get(formPath + "/summary.json")
	s.Equal(http.StatusNotFound, res.StatusCode)

	s.start()
	s.seedComplete()
	res, raw := s.get(formPath + "/summary.json")
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.Equal("application/json; charset=utf-8", res.Header.Get("Content-Type"))

	var got map[string]any
	s.Require().NoError(json.Unmarshal([]byte(raw), &got))
	s.Equal("Community garden", got["title"])
	s.Equal(3500.0, got["amount"])
	s.Equal("Ashford Parish Council", got["organisationName"])
}

func (s *ApplySuite) TestUnknownForm() {
	res, _ := s.get("/apply/no-such-form")
	s.Equal(http.StatusNotFound, res.StatusCode)
}

// -----------------------------------------------------------------------------
// Upload limits
// -----------------------------------------------------------------------------

func (s *ApplySuite) TestUploadLimitFollowsFileSettings() {
	// bank-details carries the only file field, bankStatement (12MB).
	s.Equal(int64(12582912+maxBodyBytes), uploadLimit())
}

// multipartBody encodes fields as multipart/form-data.
func (s *ApplySuite) multipartBody(fields map[string]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	s.Require().NoError(mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *ApplySuite) TestOversizedUploadIsRejectedUnread() {
	body, ct := s.multipartBody(map[string]string{"projectName": "Garden"})
	req := httptest.NewRequest(http.MethodPost, formPath+"/step/9", body)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = uploadLimit() + 1

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
}

func (s *ApplySuite) TestMultipartStepPostReadsToken() {
	s.start()
	tok := s.token(formPath + "/step/1")

	post := func(fields map[string]string) *http.Response {
		body, ct := s.multipartBody(fields)
		req, err := http.NewRequest(http.MethodPost, s.srv.URL+formPath+"/step/1", body)
		s.Require().NoError(err)
		req.Header.Set("Content-Type", ct)
		res, err := s.client.Do(req)
		s.Require().NoError(err)
		s.body(res)
		return res
	}

	res := post(map[string]string{"projectName": "Garden"})
	s.Equal(http.StatusForbidden, res.StatusCode)

	res = post(map[string]string{csrfField: tok, "projectName": "Garden"})
	s.Equal(http.StatusBadRequest, res.StatusCode, "partial step is stored but invalid")
	s.Equal("Garden", s.pendingRecord().Data().Step(1)["projectName"])
}
