// Package common defines the error taxonomy and constants shared by the
// workflow engine, the audit log and the storage layer. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Categories.
	ErrorNotFound    = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrForbidden     = errors.New("forbidden")

	// Workflow state errors. Each one matches ErrInvalidState as well.
	ErrNoCurrentPhase     = fmt.Errorf("%w: no current phase", ErrInvalidState)
	ErrAlreadyInitialized = fmt.Errorf("%w: workflow already initialized", ErrInvalidState)
	ErrTerminalPhase      = fmt.Errorf("%w: terminal phase", ErrInvalidState)
	ErrNoPredecessor      = fmt.Errorf("%w: no predecessor phase", ErrInvalidState)

	// ErrInvalidPhase is returned for a phase id outside the catalog.
	ErrInvalidPhase = fmt.Errorf("%w: invalid phase", ErrInvalidInput)
)
