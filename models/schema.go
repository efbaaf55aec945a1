// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	// ErrUnknownModel is returned when a model name is not registered.
	ErrUnknownModel = errors.New("unknown model")
	// ErrInvalidSchema is returned for schemas without a name or fields.
	ErrInvalidSchema = errors.New("invalid model schema")
)

// ModelSchema describes one synchronized model type.
type ModelSchema struct {
	// Name is the GraphQL type name (e.g. "Post").
	Name string `json:"name"`

	// PluralName is used for the sync query ("syncPosts"). Defaults to
	// Name + "s".
	PluralName string `json:"plural_name,omitempty"`

	// Fields lists the selectable payload fields, "id" excluded.
	Fields []string `json:"fields"`

	// SyncExpression is an optional boolean expression evaluated against
	// incoming items; items that do not match are not hydrated.
	SyncExpression string `json:"sync_expression,omitempty"`

	// SyncFilter is an optional remote filter input sent with sync queries.
	SyncFilter json.RawMessage `json:"sync_filter,omitempty"`
}

// Plural returns PluralName or its default.
func (s ModelSchema) Plural() string {
	if s.PluralName != "" {
		return s.PluralName
	}
	return s.Name + "s"
}

// SchemaRegistry is an ordered set of model schemas owned by one engine
// instance.
type SchemaRegistry struct {
	mu      sync.RWMutex
	order   []string
	schemas map[string]ModelSchema
}

// NewSchemaRegistry creates a registry holding schemas in the given order.
func NewSchemaRegistry(schemas ...ModelSchema) (*SchemaRegistry, error) {
	r := &SchemaRegistry{schemas: make(map[string]ModelSchema, len(schemas))}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadSchemaRegistry reads a JSON document of the form
// {"models": [ModelSchema...]} from path.
func LoadSchemaRegistry(path string) (*SchemaRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var doc struct {
		Models []ModelSchema `json:"models"`
	}
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}

	return NewSchemaRegistry(doc.Models...)
}

// Register adds or replaces a schema. Replacing keeps the original position.
func (r *SchemaRegistry) Register(s ModelSchema) error {
	if s.Name == "" || len(s.Fields) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidSchema, s.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.schemas[s.Name] = s
	return nil
}

// Get returns the schema registered under name.
func (r *SchemaRegistry) Get(name string) (ModelSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	if !ok {
		return ModelSchema{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return s, nil
}

// Names returns registered model names in registration order.
func (r *SchemaRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// All returns registered schemas in registration order.
func (r *SchemaRegistry) All() []ModelSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.schemas[name])
	}
	return out
}
