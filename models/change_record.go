// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// MutationKind is the operation a [ChangeRecord] replays against the remote.
type MutationKind string

const (
	// MutationSave creates or updates the target record.
	MutationSave MutationKind = "SAVE"
	// MutationDelete deletes the target record.
	MutationDelete MutationKind = "DELETE"
)

// Initiator tells who caused a local storage write.
type Initiator string

const (
	// InitiatorLocal marks writes issued by local API callers.
	InitiatorLocal Initiator = "LOCAL"
	// InitiatorSyncEngine marks writes issued by hydration, acknowledgments
	// and subscriptions. They are never re-enqueued into the outbox.
	InitiatorSyncEngine Initiator = "SYNC_ENGINE"
)

// ChangeRecord is one pending local mutation waiting in the outbox.
type ChangeRecord struct {
	// ID is a time-ordered UUID (v7) assigned on enqueue.
	ID string `json:"id"`

	ModelName string       `json:"model_name"`
	ModelID   string       `json:"model_id"`
	Item      Model        `json:"item"`
	Kind      MutationKind `json:"kind"`
	Initiator Initiator    `json:"initiator"`
	CreatedAt time.Time    `json:"created_at"`

	// Seq is the storage-assigned enqueue position. It is zero until the
	// record has been persisted.
	Seq int64 `json:"seq"`
}

// Identity returns the (type, id) pair the record targets.
func (c ChangeRecord) Identity() Identity {
	return Identity{ModelName: c.ModelName, ModelID: c.ModelID}
}

// NewChangeRecord builds an unpersisted record for change with the given id.
func NewChangeRecord(id string, change StorageItemChange, now time.Time) ChangeRecord {
	return ChangeRecord{
		ID:        id,
		ModelName: change.Item.Name,
		ModelID:   change.Item.ID,
		Item:      change.Item,
		Kind:      change.Kind,
		Initiator: change.Initiator,
		CreatedAt: now.UTC(),
	}
}

// StorageItemChange is emitted by the local store for every committed model
// write.
type StorageItemChange struct {
	Item      Model
	Kind      MutationKind
	Initiator Initiator
}
