package main

import (
	"errors"
	"fmt"
	"os"

	"autism-screening/internal/screening"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0
	ExitInvalid = 1 // Bad answers, signals or policy file
	ExitError   = 2 // Anything else
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, screening.ErrInvalidInput), errors.Is(err, screening.ErrInvalidPolicy):
		return ExitInvalid
	default:
		return ExitError
	}
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
