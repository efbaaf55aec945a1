package service

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

// Merger writes remote items into local storage. Remote state wins when it
// is newer than what is stored; while a local mutation for the identity is
// pending only the metadata is taken so the unsent local model survives.
type Merger struct {
	local  store.LocalStorage
	outbox *MutationOutbox
}

func NewMerger(local store.LocalStorage, outbox *MutationOutbox) *Merger {
	return &Merger{local: local, outbox: outbox}
}

// Merge applies item under the version gate. Mutation ids in except are not
// counted as pending.
func (m *Merger) Merge(ctx context.Context, item models.ModelWithMetadata, except ...string) (store.MergeResult, error) {
	return m.local.Merge(ctx, item, func(_ context.Context, current *models.ModelMetadata) (store.MergeDecision, error) {
		if !IsNewer(item.Metadata, current) {
			return store.MergeSkip, nil
		}
		if m.outbox != nil && m.outbox.HasPending(item.Identity(), except...) {
			return store.MergeMetadataOnly, nil
		}
		return store.MergeApply, nil
	})
}

// ForceMerge applies item under the version gate even if local mutations
// are pending. Used when a pending mutation is being abandoned.
func (m *Merger) ForceMerge(ctx context.Context, item models.ModelWithMetadata) (store.MergeResult, error) {
	return m.local.Merge(ctx, item, func(_ context.Context, current *models.ModelMetadata) (store.MergeDecision, error) {
		if !IsNewer(item.Metadata, current) {
			return store.MergeSkip, nil
		}
		return store.MergeApply, nil
	})
}

// IsNewer reports whether incoming supersedes current. Updates need a
// strictly greater version; a tombstone wins at an equal version unless the
// stored record is already deleted.
func IsNewer(incoming models.ModelMetadata, current *models.ModelMetadata) bool {
	if current == nil {
		return true
	}
	if incoming.Deleted {
		return !current.Deleted && incoming.Version >= current.Version
	}
	return incoming.Version > current.Version
}
