// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// SyncCursor records how far a model type has been hydrated.
type SyncCursor struct {
	ModelName string

	// Token is the opaque delta token returned by the remote with the last
	// completed sync. Empty means "never synced".
	Token string

	LastSyncAt     time.Time
	LastFullSyncAt time.Time
}

// SyncRequest asks the remote for one page of a model type.
type SyncRequest struct {
	ModelName string

	// SinceToken is the cursor token for a delta sync; empty for a base sync.
	SinceToken string

	// NextToken continues a paginated query; empty for the first page.
	NextToken string

	Limit int

	// Filter is forwarded verbatim as the remote filter input.
	Filter json.RawMessage
}

// SyncPage is one page of a sync query.
type SyncPage struct {
	Items []ModelWithMetadata

	// NextToken is empty on the last page.
	NextToken string

	// SyncToken is the delta token to store once every page was applied.
	SyncToken string
}
