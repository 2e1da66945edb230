package entities

import (
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// registration can only fail on an empty tag or nil func
	_ = v.RegisterValidation("tender_source", func(fl validator.FieldLevel) bool {
		return Source(fl.Field().String()).Valid()
	})
	return v
}
