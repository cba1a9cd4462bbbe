// Package validator wraps go-playground validation behind an injectable
// type so services do not reach for a package-global instance.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates request structs via their binding tags.
type Validator struct {
	v *validator.Validate
}

// New builds a validator with the standard tag set.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates tagged struct fields.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag expression.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation adds a custom tag.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
