// Package llm sends chat requests to a provider over HTTP and recovers
// structured data from the replies.
package llm

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance used across the package.
var validate = validator.New()

// Validate checks if the given struct is valid according to its validation rules.
// It uses the go-playground/validator package to perform validation based on struct tags.
//
// Example:
//
//	msg := types.Message{Role: "user", Content: "hi"}
//	if err := Validate(&msg); err != nil {
//	    log.Fatal(err)
//	}
func Validate(s any) error {
	return validate.Struct(s)
}

// RegisterCustomValidation registers a custom validation function with the validator.
// This allows adding domain-specific validation rules beyond the standard ones.
func RegisterCustomValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}
