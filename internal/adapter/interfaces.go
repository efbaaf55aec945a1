// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter talks to the remote GraphQL backend.
//
// [RemoteEndpoint] performs per-type create/update/delete mutations and
// paginated sync queries; [Subscriber] streams remote changes over a
// websocket. Transport and GraphQL failures are mapped to the sentinel
// errors in errors.go so callers can use [errors.Is] and [IsRetryable]
// without knowing the wire format.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// RemoteEndpoint is the remote side of the sync engine. Versions passed to
// Update and Delete are the locally-known remote versions; the endpoint
// rejects stale ones with a [*ConflictError].
type RemoteEndpoint interface {
	// Create sends a new record and returns it with its first remote
	// version.
	Create(ctx context.Context, item models.Model) (models.ModelWithMetadata, error)

	// Update replaces the record if the remote version still equals
	// expectedVersion.
	Update(ctx context.Context, item models.Model, expectedVersion int64) (models.ModelWithMetadata, error)

	// Delete tombstones the record if the remote version still equals
	// expectedVersion.
	Delete(ctx context.Context, item models.Model, expectedVersion int64) (models.ModelWithMetadata, error)

	// Sync fetches one page of a model type. An empty NextToken in the
	// result marks the last page.
	Sync(ctx context.Context, req models.SyncRequest) (models.SyncPage, error)
}

// Subscriber streams remote create/update/delete events for the given model
// types until ctx is cancelled. Both channels are closed when the stream
// ends.
type Subscriber interface {
	Subscribe(ctx context.Context, modelNames []string) (<-chan models.ModelWithMetadata, <-chan error, error)
}
