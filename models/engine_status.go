// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// EngineStatus is a point-in-time view of the sync engine exposed by the ops
// endpoint.
type EngineStatus struct {
	Running          bool      `json:"running"`
	PendingCount     int       `json:"pending_count"`
	PendingIDs       []string  `json:"pending_ids"`
	LastHydrationAt  time.Time `json:"last_hydration_at,omitempty"`
	LastHydrationErr string    `json:"last_hydration_error,omitempty"`
}
