package shared

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest validates v with its own Validate method when it has one,
// and with its struct tags otherwise.
func ValidateRequest(v interface{}) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}
