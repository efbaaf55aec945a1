// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	tableModels        = "models"
	tableModelMetadata = "model_metadata"
	tableChangeRecords = "change_records"
	tableSyncCursors   = "sync_cursors"
)

var (
	modelColumns        = []string{"model_name", "model_id", "payload", "updated_at"}
	metadataColumns     = []string{"model_name", "model_id", "version", "deleted", "last_changed_at"}
	changeRecordColumns = []string{"seq", "id", "model_name", "model_id", "item", "kind", "initiator", "created_at"}
	syncCursorColumns   = []string{"model_name", "sync_token", "last_sync_at", "last_full_sync_at"}
)

const (
	upsertModelSuffix = `ON CONFLICT (model_name, model_id) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at`

	insertMetadataSuffix = `ON CONFLICT (model_name, model_id) DO NOTHING`

	upsertSyncCursorSuffix = `ON CONFLICT (model_name) DO UPDATE SET
		sync_token = excluded.sync_token,
		last_sync_at = excluded.last_sync_at,
		last_full_sync_at = excluded.last_full_sync_at`
)
