// components/apply/ui.go
//
// Bilingual page chrome.  Field labels and messages come from the form
// definition; everything else a page says lives here.
package apply

import "github.com/mattandrews/blf-test-sub000/internal/locale"

var uiText = map[string]locale.Text{
	// buttons and links
	"start":          locale.T("Start your application", "Dechrau eich cais"),
	"resume":         locale.T("Continue your application", "Parhau â’ch cais"),
	"continue":       locale.T("Continue", "Parhau"),
	"back":           locale.T("Back", "Yn ôl"),
	"change":         locale.T("Change", "Newid"),
	"submit":         locale.T("Submit application", "Cyflwyno cais"),
	"backToReview":   locale.T("Return to your answers", "Dychwelyd i’ch atebion"),
	"yourApps":       locale.T("Your applications", "Eich ceisiadau"),
	"switchLanguage": locale.T("Cymraeg", "English"),

	// start page
	"emailLabel": locale.T("Your email address", "Eich cyfeiriad e-bost"),
	"emailHint": locale.T("We will use this to send you reminders before your application expires",
		"Byddwn yn defnyddio hwn i anfon nodiadau atgoffa cyn i’ch cais ddod i ben"),
	"emailInvalid": locale.T("Enter a real email address", "Rhowch gyfeiriad e-bost go iawn"),

	// step page
	"errorSummary": locale.T("There is a problem", "Mae problem"),
	"stepOf":       locale.T("Step %d of %d", "Cam %d o %d"),
	"optional":     locale.T("(optional)", "(dewisol)"),
	"wordCount":    locale.T("%d of %d words", "%d o %d gair"),
	"currentFile":  locale.T("Current file: %s", "Ffeil bresennol: %s"),
	"threeYears": locale.T("Have you lived at your current address for at least three years?",
		"Ydych chi wedi byw yn eich cyfeiriad presennol am o leiaf tair blynedd?"),
	"previousAddress": locale.T("If not, what was your previous address?", "Os na, beth oedd eich cyfeiriad blaenorol?"),

	// composite parts
	"line1":     locale.T("Building and street", "Adeilad a stryd"),
	"line2":     locale.T("Address line 2", "Llinell cyfeiriad 2"),
	"townCity":  locale.T("Town or city", "Tref neu ddinas"),
	"county":    locale.T("County", "Sir"),
	"postcode":  locale.T("Postcode", "Cod post"),
	"firstName": locale.T("First name", "Enw cyntaf"),
	"lastName":  locale.T("Last name", "Cyfenw"),
	"day":       locale.T("Day", "Diwrnod"),
	"month":     locale.T("Month", "Mis"),
	"year":      locale.T("Year", "Blwyddyn"),
	"startDate": locale.T("Start date", "Dyddiad dechrau"),
	"endDate":   locale.T("End date", "Dyddiad gorffen"),
	"item":      locale.T("Item or activity", "Eitem neu weithgaredd"),
	"cost":      locale.T("Cost", "Cost"),
	"total":     locale.T("Total:", "Cyfanswm:"),

	// review, success, and listing
	"confirm": locale.T("I confirm that the information in this application is correct",
		"Rwy’n cadarnhau bod y wybodaeth yn y cais hwn yn gywir"),
	"confirmRequired": locale.T("Confirm your answers before submitting", "Cadarnhewch eich atebion cyn cyflwyno"),
	"reference":       locale.T("Your reference is %s", "Eich cyfeirnod yw %s"),
	"inProgress":      locale.T("In progress", "Ar y gweill"),
	"submitted":       locale.T("Submitted", "Wedi’i gyflwyno"),
	"expires":         locale.T("Expires on %s", "Yn dod i ben ar %s"),
	"noApps":          locale.T("You have no applications yet", "Nid oes gennych unrhyw geisiadau eto"),
	"amount":          locale.T("Amount requested", "Swm y gofynnwyd amdano"),
	"projectDates":    locale.T("Project dates", "Dyddiadau’r prosiect"),
	"organisation":    locale.T("Organisation", "Sefydliad"),
	"sessionExpired": locale.T("Your session has expired.  Start again from the application page.",
		"Mae eich sesiwn wedi dod i ben.  Dechreuwch eto o dudalen y cais."),
}

// ui returns the chrome text for key.  Unknown keys return the key itself so
// a missing entry shows up on the page rather than as a blank.
func ui(key string) locale.Text {
	if t, ok := uiText[key]; ok {
		return t
	}
	return locale.T(key, key)
}
