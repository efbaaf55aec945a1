// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-sync-engine/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/servicemock/service_mock.go -package=servicemock

// Publisher receives engine notifications. Publish must not block on slow or
// missing subscribers.
type Publisher interface {
	Publish(ctx context.Context, e models.Event)
}

// ConflictHandler decides what to do when the remote rejects a mutation
// because the locally-known version is stale.
type ConflictHandler interface {
	Resolve(ctx context.Context, conflict ConflictData) (ConflictDecision, error)
}

// Hydrator pulls remote state into the local store.
type Hydrator interface {
	Hydrate(ctx context.Context) error
}

// HydrationJob re-runs hydration periodically in the background.
type HydrationJob interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
}
