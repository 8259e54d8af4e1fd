// components/apply/confirmation.go
//
// Confirmation email sent once a submission is stored.
package apply

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/mattandrews/blf-test-sub000/internal/application"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/mail"
	"github.com/mattandrews/blf-test-sub000/internal/summary"
)

var confirmationSubject = locale.T(
	"We have received your application",
	"Rydym wedi derbyn eich cais")

const confirmationText = `
{{- define "en"}}Hello,

Thank you for applying. We have received your application "{{.Title}}" for {{.Amount}}.

Your reference is {{.Reference}}.

You can see your applications at:
{{.Link}}
{{end}}
{{- define "cy"}}Helo,

Diolch am wneud cais. Rydym wedi derbyn eich cais "{{.Title}}" am {{.Amount}}.

Eich cyfeirnod yw {{.Reference}}.

Gallwch weld eich ceisiadau yn:
{{.Link}}
{{end}}`

const confirmationHTML = `
{{- define "en"}}<p>Hello,</p>
<p>Thank you for applying.  We have received your application <strong>{{.Title}}</strong> for {{.Amount}}.</p>
<p>Your reference is <strong>{{.Reference}}</strong>.</p>
<p><a href="{{.Link}}">See your applications</a></p>
{{end}}
{{- define "cy"}}<p>Helo,</p>
<p>Diolch am wneud cais.  Rydym wedi derbyn eich cais <strong>{{.Title}}</strong> am {{.Amount}}.</p>
<p>Eich cyfeirnod yw <strong>{{.Reference}}</strong>.</p>
<p><a href="{{.Link}}">Gweld eich ceisiadau</a></p>
{{end}}`

var (
	confirmationTextTmpl = texttemplate.Must(texttemplate.New("confirmation").Parse(confirmationText))
	confirmationHTMLTmpl = htmltemplate.Must(htmltemplate.New("confirmation").Parse(confirmationHTML))
)

type confirmationData struct {
	Title     string
	Amount    string
	Reference string
	Link      string
}

// confirmation builds the receipt for rec in l.  publicURL is the site's
// absolute base URL.
func confirmation(rec application.Submitted, l locale.Locale, publicURL string) (mail.Email, error) {
	view := summary.Build(rec, l)
	data := confirmationData{
		Title:     view.Title,
		Amount:    view.AmountRequested,
		Reference: rec.ID,
		Link:      strings.TrimRight(publicURL, "/") + "/apply/",
	}

	var text, html bytes.Buffer
	if err := confirmationTextTmpl.ExecuteTemplate(&text, string(l), data); err != nil {
		return mail.Email{}, err
	}
	if err := confirmationHTMLTmpl.ExecuteTemplate(&html, string(l), data); err != nil {
		return mail.Email{}, err
	}
	return mail.Email{
		To:      []string{rec.OwnerEmail},
		Subject: confirmationSubject.In(l),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
