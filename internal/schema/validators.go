// internal/schema/validators.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// Scalar string rules (email, length, and the UK-specific postcode and phone
// formats) are expressed as validator tags and executed with Var.  The two
// custom tags are registered once on the package-level instance.
//
// Notes
// -----
//   - Postcodes are upper-cased and inner whitespace collapsed before
//     matching, so “ec4a1dE” and “EC4A 1DE” are both accepted.
//   - Phone numbers ignore spaces, dashes, dots, and brackets.
package schema

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	postcodePattern = regexp.MustCompile(`^([A-Z][A-HJ-Y]?[0-9][A-Z0-9]? ?[0-9][A-Z]{2}|GIR ?0AA)$`)
	phonePattern    = regexp.MustCompile(`^(\+44|0044|0)[1-9][0-9]{8,9}$`)
	phoneNoise      = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("postcode", func(fl validator.FieldLevel) bool {
		return postcodePattern.MatchString(NormalizePostcode(fl.Field().String()))
	})
	_ = v.RegisterValidation("ukphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(phoneNoise.Replace(fl.Field().String()))
	})
	return v
}

// NormalizePostcode upper-cases p and collapses whitespace to one space.
func NormalizePostcode(p string) string {
	return strings.Join(strings.Fields(strings.ToUpper(p)), " ")
}

// check runs one validator tag against s.
func check(s, tag string) bool {
	return validate.Var(s, tag) == nil
}
