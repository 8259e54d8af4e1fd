// internal/expiry/email.go
//
// Reminder email content.
//
// Context
// -------
// One reminder per warning stage, in the application's own locale.  The
// body names the project using the same summary the dashboard shows, the
// date the application will be deleted, and a link back to it.
package expiry

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
	"github.com/mattandrews/blf-test-sub000/internal/summary"
)

var subjects = map[Stage]locale.Text{
	MonthWarning: locale.T(
		"Your application will be deleted in one month",
		"Bydd eich cais yn cael ei ddileu mewn mis"),
	WeekWarning: locale.T(
		"Your application will be deleted in two weeks",
		"Bydd eich cais yn cael ei ddileu mewn pythefnos"),
	DayWarning: locale.T(
		"Your application will be deleted in two days",
		"Bydd eich cais yn cael ei ddileu mewn deuddydd"),
}

const textBody = `
{{- define "en"}}Hello,

Your unfinished application "{{.Title}}" will be deleted on {{.ExpiresOn}}.

To keep it, sign in and carry on with your application:
{{.Link}}
{{end}}
{{- define "cy"}}Helo,

Bydd eich cais anorffenedig "{{.Title}}" yn cael ei ddileu ar {{.ExpiresOn}}.

I'w gadw, mewngofnodwch a pharhau gyda'ch cais:
{{.Link}}
{{end}}`

const htmlBody = `
{{- define "en"}}<p>Hello,</p>
<p>Your unfinished application <strong>{{.Title}}</strong> will be deleted on {{.ExpiresOn}}.</p>
<p><a href="{{.Link}}">Continue your application</a></p>
{{end}}
{{- define "cy"}}<p>Helo,</p>
<p>Bydd eich cais anorffenedig <strong>{{.Title}}</strong> yn cael ei ddileu ar {{.ExpiresOn}}.</p>
<p><a href="{{.Link}}">Parhau gyda'ch cais</a></p>
{{end}}`

var (
	textTmpl = texttemplate.Must(texttemplate.New("reminder").Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("reminder").Parse(htmlBody))
)

type reminderData struct {
	Title     string
	ExpiresOn string
	Link      string
}

// Reminder builds the email owed to rec for stage.  resumeBase is the site
// root URL; form IDs carry their component prefix.
func Reminder(rec application.Pending, stage Stage, resumeBase string) (mail.Email, error) {
	l := locale.Parse(rec.Locale)
	data := reminderData{
		Title:     summary.Build(rec, l).Title,
		ExpiresOn: locale.Date(rec.ExpiresAt.In(time.UTC), l),
		Link:      strings.TrimRight(resumeBase, "/") + "/" + rec.FormID,
	}

	var text, html bytes.Buffer
	if err := textTmpl.ExecuteTemplate(&text, string(l), data); err != nil {
		return mail.Email{}, err
	}
	if err := htmlTmpl.ExecuteTemplate(&html, string(l), data); err != nil {
		return mail.Email{}, err
	}
	return mail.Email{
		To:      []string{rec.OwnerEmail},
		Subject: subjects[stage].In(l),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
