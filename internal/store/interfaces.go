// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/models"
)

// ChangeListener is invoked synchronously for every committed-to-be model
// write, inside the write transaction. Returning an error rolls the write
// back.
type ChangeListener func(ctx context.Context, change models.StorageItemChange) error

// MergeFunc inspects the stored metadata (nil when absent) of an incoming
// remote item and decides how it is written.
type MergeFunc func(ctx context.Context, current *models.ModelMetadata) (MergeDecision, error)

// LocalStorage is the durable local store of typed records and their remote
// metadata. Writes to a single identity are serialized.
type LocalStorage interface {
	// Save upserts m and notifies listeners with a SAVE change.
	Save(ctx context.Context, m models.Model, initiator models.Initiator) error
	// Delete removes the stored model and notifies listeners with a DELETE
	// change carrying the removed item.
	Delete(ctx context.Context, id models.Identity, initiator models.Initiator) error
	Get(ctx context.Context, id models.Identity) (models.Model, error)
	// Query lists models of a type matching p; a nil p matches all.
	Query(ctx context.Context, modelName string, p models.Predicate) ([]models.Model, error)
	GetMetadata(ctx context.Context, id models.Identity) (models.ModelMetadata, error)

	// Merge applies a remote item under the identity lock with a
	// compare-and-swap on the stored metadata version.
	Merge(ctx context.Context, item models.ModelWithMetadata, decide MergeFunc) (MergeResult, error)

	// Observe registers l and returns a function that unregisters it.
	Observe(l ChangeListener) (cancel func())

	// WithinTx runs fn in a transaction carried by the returned context.
	// Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChangeRecordRepository persists outbox entries in enqueue order.
type ChangeRecordRepository interface {
	// Insert stores rec and returns its enqueue sequence number.
	Insert(ctx context.Context, rec models.ChangeRecord) (int64, error)
	// Update rewrites the item, kind and initiator of an existing record.
	Update(ctx context.Context, rec models.ChangeRecord) error
	// Delete removes a record by id and reports how many rows were removed.
	Delete(ctx context.Context, id string) (int64, error)
	// List returns every stored record, oldest first.
	List(ctx context.Context) ([]models.ChangeRecord, error)
}

// SyncCursorRepository persists per-type hydration cursors.
type SyncCursorRepository interface {
	Get(ctx context.Context, modelName string) (models.SyncCursor, error)
	Save(ctx context.Context, cursor models.SyncCursor) error
	List(ctx context.Context) ([]models.SyncCursor, error)
}

// ErrorClassificator decides whether a failed database operation may be
// retried.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
