package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrAttemptsExhausted matches every *ExhaustedError. It is terminal:
	// callers must not retry on their own.
	ErrAttemptsExhausted = errors.New("mission plan attempts exhausted")
	ErrEmptyInstruction  = errors.New("instruction is empty")
)

// GeneratorError is a backend failure. It never consumes further attempts.
type GeneratorError struct {
	Attempt int
	Err     error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

type ExhaustedError struct {
	Attempts int
	LastRaw  string
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate a valid mission plan after %d attempt(s): %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

func (e *ExhaustedError) Is(target error) bool { return target == ErrAttemptsExhausted }
