package service

import "errors"

var (
	// ErrModelScheduledForDeletion is returned when a model is saved while
	// its deletion is still waiting in the outbox and the save-after-delete
	// policy is reject.
	ErrModelScheduledForDeletion = errors.New("model is scheduled for deletion")

	ErrUnsupportedMutation = errors.New("unsupported mutation kind")

	ErrHydrationInProgress = errors.New("hydration already in progress")
	ErrEngineRunning       = errors.New("sync engine already running")
	ErrEngineNotRunning    = errors.New("sync engine is not running")
	ErrEngineClosed        = errors.New("sync engine is closed")

	// ErrConflictUnresolved is reported when a mutation still conflicts
	// after its single resolved retry.
	ErrConflictUnresolved = errors.New("conflict could not be resolved")
)
