// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
)

// Identity addresses a single record across the local store, the outbox and
// the remote endpoint.
type Identity struct {
	ModelName string
	ModelID   string
}

// String returns the "<model>/<id>" form used in logs and lock keys.
func (i Identity) String() string {
	return i.ModelName + "/" + i.ModelID
}

// Model is a typed record with an opaque JSON payload. The payload holds the
// record's user-defined fields; the id is kept separately so that storage and
// transport never need to decode the payload to address a record.
type Model struct {
	// Name is the model type name as registered in the [SchemaRegistry]
	// (e.g. "Post").
	Name string `json:"__typename"`

	// ID is the client-generated identifier of the record.
	ID string `json:"id"`

	// Payload is a JSON object with the record's fields, id excluded.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Identity returns the record's (type, id) pair.
func (m Model) Identity() Identity {
	return Identity{ModelName: m.Name, ModelID: m.ID}
}

// Fields decodes the payload into a field map. An empty payload yields an
// empty map.
func (m Model) Fields() (map[string]any, error) {
	fields := make(map[string]any)
	if len(m.Payload) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(m.Payload, &fields); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", m.Identity(), err)
	}
	return fields, nil
}

// Field returns a single decoded field. "id" resolves to the record id.
func (m Model) Field(name string) (any, bool) {
	if name == "id" {
		return m.ID, true
	}
	fields, err := m.Fields()
	if err != nil {
		return nil, false
	}
	v, ok := fields[name]
	return v, ok
}

// ModelMetadata is the version envelope the remote system assigns to a record.
// Versions are only ever compared locally, never minted.
type ModelMetadata struct {
	ModelName string `json:"model_name"`
	ID        string `json:"id"`

	// Version is the remote version; 0 means "never acknowledged".
	Version int64 `json:"_version"`

	// Deleted marks a remote tombstone.
	Deleted bool `json:"_deleted"`

	// LastChangedAt is the remote change time in unix milliseconds.
	LastChangedAt int64 `json:"_lastChangedAt"`
}

// Identity returns the (type, id) pair the metadata belongs to.
func (m ModelMetadata) Identity() Identity {
	return Identity{ModelName: m.ModelName, ModelID: m.ID}
}

// ModelWithMetadata is the unit transferred during hydration and returned by
// every remote mutation.
type ModelWithMetadata struct {
	Model    Model         `json:"model"`
	Metadata ModelMetadata `json:"metadata"`
}

// Identity returns the pair's (type, id).
func (m ModelWithMetadata) Identity() Identity {
	return m.Model.Identity()
}
