package validate

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates the `validate` tags of v.
func Struct(v interface{}) error {
	return validate.Struct(v)
}
