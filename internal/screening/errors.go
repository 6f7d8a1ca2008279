// Package screening combines independent screening signals into one verdict.
package screening

import "github.com/pkg/errors"

var (
	// ErrInvalidInput marks malformed or mismatched questionnaire input.
	// Callers map it to a client error and never retry.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPolicy marks a misconfigured aggregation policy or question set.
	// It is an operator error and should surface at startup.
	ErrInvalidPolicy = errors.New("invalid policy")
)
