package models

import "errors"

var (
	ErrRateLimited         = errors.New("provider rate limited")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrMalformedOutput     = errors.New("malformed model output")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoPatientData       = errors.New("the patient does not have any information")
)
