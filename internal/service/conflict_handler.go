package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/models"
)

// ConflictResolution tells the mutation processor how to proceed after a
// version conflict.
type ConflictResolution int

const (
	// ResolveApplyRemote drops the local mutation and keeps the remote
	// record.
	ResolveApplyRemote ConflictResolution = iota
	// ResolveRetryLocal resends the local item at the remote version.
	ResolveRetryLocal
	// ResolveRetryWith resends ConflictDecision.Model at the remote version.
	ResolveRetryWith
)

func (r ConflictResolution) String() string {
	switch r {
	case ResolveApplyRemote:
		return "apply_remote"
	case ResolveRetryLocal:
		return "retry_local"
	case ResolveRetryWith:
		return "retry_with"
	}
	return fmt.Sprintf("ConflictResolution(%d)", int(r))
}

// ConflictData describes a rejected mutation.
type ConflictData struct {
	Record models.ChangeRecord
	// Remote is the server's current record; nil when the server did not
	// return it and no newer local metadata is known.
	Remote *models.ModelWithMetadata
	// Attempt is 1 for the first conflict of a record.
	Attempt int
}

// ConflictDecision is returned by a [ConflictHandler].
type ConflictDecision struct {
	Resolution ConflictResolution
	// Model replaces the local item when Resolution is ResolveRetryWith.
	Model models.Model
}

// ApplyRemote is the default [ConflictHandler]: remote state always wins.
type ApplyRemote struct{}

func (ApplyRemote) Resolve(context.Context, ConflictData) (ConflictDecision, error) {
	return ConflictDecision{Resolution: ResolveApplyRemote}, nil
}

// ConflictHandlerFunc adapts a function to [ConflictHandler].
type ConflictHandlerFunc func(ctx context.Context, conflict ConflictData) (ConflictDecision, error)

func (f ConflictHandlerFunc) Resolve(ctx context.Context, conflict ConflictData) (ConflictDecision, error) {
	return f(ctx, conflict)
}
