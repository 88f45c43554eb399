package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNoSnapshot indicates the engine has no loaded snapshot yet.
	ErrNoSnapshot = errors.New("no bundle snapshot loaded")

	// ErrNilContext indicates a nil request context was passed to Decide.
	ErrNilContext = errors.New("request context cannot be nil")
)

// ReloadError indicates a bundle reload failure. The previous snapshot
// stays active when a reload fails.
type ReloadError struct {
	Source string
	Cause  error
}

// Error returns the error message.
func (e *ReloadError) Error() string {
	return fmt.Sprintf("bundle reload failed from %q: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ReloadError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates a bundle failed validation outright (not
// per-rule degradation, which produces warnings instead).
type ValidationError struct {
	Bundle string
	Cause  error
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("bundle %q failed validation: %v", e.Bundle, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// DispatchError indicates a side-effect collaborator failure. It is
// recorded in SideEffectResults, never returned from Decide: dispatch
// failures degrade, they do not fail decisions.
type DispatchError struct {
	ActionType string
	Cause      error
}

// Error returns the error message.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("action %s dispatch failed: %v", e.ActionType, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}
