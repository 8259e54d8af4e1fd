// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// One custom rule lives here: a database DSN with a password verb must
// carry exactly one `%s` and a password to put in it.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

func init() {
	v.RegisterStructValidation(validateDatabase, Database{})
}

//
// custom rules
//

func validateDatabase(sl validator.StructLevel) {
	db := sl.Current().Interface().(Database)
	switch n := strings.Count(db.DSN, "%s"); {
	case n > 1:
		sl.ReportError(db.DSN, "DSN", "DSN", "dsn_verbs", "")
	case n == 1 && db.Password == "":
		sl.ReportError(db.Password, "Password", "Password", "required_with_dsn_verb", "")
	}
}

//
// public API
//

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	return nil
}
