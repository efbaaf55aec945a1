// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

// MergeDecision is the outcome of a [MergeFunc].
type MergeDecision int

const (
	// MergeSkip leaves model and metadata untouched.
	MergeSkip MergeDecision = iota
	// MergeMetadataOnly stores the incoming metadata but keeps the local
	// model. Used while a local mutation for the identity is still pending.
	MergeMetadataOnly
	// MergeApply writes (or deletes) the model and stores the metadata.
	MergeApply
)

func (d MergeDecision) String() string {
	switch d {
	case MergeSkip:
		return "skip"
	case MergeMetadataOnly:
		return "metadata_only"
	case MergeApply:
		return "apply"
	}
	return fmt.Sprintf("MergeDecision(%d)", int(d))
}

// MergeResult reports what [LocalStorage.Merge] did.
type MergeResult struct {
	Decision MergeDecision
	// Current is the metadata stored before the merge, nil if none.
	Current *models.ModelMetadata
}

type localStorage struct {
	db       *DB
	models   *modelRepository
	metadata *metadataRepository
	locks    *keyedMutex

	listenersMu  sync.RWMutex
	listeners    map[int]ChangeListener
	nextListener int

	logger *logger.Logger
}

// NewLocalStorage builds the [LocalStorage] over an opened and migrated db.
func NewLocalStorage(db *DB, log *logger.Logger) LocalStorage {
	return &localStorage{
		db:        db,
		models:    newModelRepository(db),
		metadata:  newMetadataRepository(db),
		locks:     newKeyedMutex(),
		listeners: make(map[int]ChangeListener),
		logger:    log,
	}
}

func (s *localStorage) Save(ctx context.Context, m models.Model, initiator models.Initiator) error {
	if m.Name == "" || m.ID == "" {
		return ErrInvalidModel
	}

	unlock := s.locks.Lock(m.Identity().String())
	defer unlock()

	return s.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.models.Upsert(ctx, m); err != nil {
			return err
		}
		return s.notify(ctx, models.StorageItemChange{Item: m, Kind: models.MutationSave, Initiator: initiator})
	})
}

func (s *localStorage) Delete(ctx context.Context, id models.Identity, initiator models.Initiator) error {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	return s.db.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := s.models.Get(ctx, id)
		if err != nil {
			return err
		}
		if _, err = s.models.Delete(ctx, id); err != nil {
			return err
		}
		return s.notify(ctx, models.StorageItemChange{Item: stored, Kind: models.MutationDelete, Initiator: initiator})
	})
}

func (s *localStorage) Get(ctx context.Context, id models.Identity) (models.Model, error) {
	return s.models.Get(ctx, id)
}

func (s *localStorage) Query(ctx context.Context, modelName string, p models.Predicate) ([]models.Model, error) {
	all, err := s.models.List(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return all, nil
	}

	matched := make([]models.Model, 0, len(all))
	for _, m := range all {
		ok, err := p.Match(m)
		if err != nil {
			return nil, fmt.Errorf("evaluate predicate on %s: %w", m.Identity(), err)
		}
		if ok {
			matched = append(matched, m)
		}
	}

	return matched, nil
}

func (s *localStorage) GetMetadata(ctx context.Context, id models.Identity) (models.ModelMetadata, error) {
	return s.metadata.Get(ctx, id)
}

func (s *localStorage) Merge(ctx context.Context, item models.ModelWithMetadata, decide MergeFunc) (MergeResult, error) {
	id := item.Identity()
	unlock := s.locks.Lock(id.String())
	defer unlock()

	var result MergeResult
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		result = MergeResult{}

		current, err := s.metadata.Get(ctx, id)
		switch {
		case errors.Is(err, ErrMetadataNotFound):
		case err != nil:
			return err
		default:
			result.Current = &current
		}

		result.Decision, err = decide(ctx, result.Current)
		if err != nil {
			return err
		}

		switch result.Decision {
		case MergeSkip:
			return nil
		case MergeApply:
			if err = s.applyModel(ctx, item); err != nil {
				return err
			}
		}

		md := item.Metadata
		md.ModelName, md.ID = id.ModelName, id.ModelID
		return s.metadata.CompareAndSwap(ctx, md, result.Current)
	})
	if err != nil {
		return MergeResult{}, err
	}

	return result, nil
}

func (s *localStorage) applyModel(ctx context.Context, item models.ModelWithMetadata) error {
	change := models.StorageItemChange{Item: item.Model, Kind: models.MutationSave, Initiator: models.InitiatorSyncEngine}

	if item.Metadata.Deleted {
		change.Kind = models.MutationDelete
		if _, err := s.models.Delete(ctx, item.Identity()); err != nil {
			return err
		}
	} else if err := s.models.Upsert(ctx, item.Model); err != nil {
		return err
	}

	return s.notify(ctx, change)
}

func (s *localStorage) Observe(l ChangeListener) (cancel func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	key := s.nextListener
	s.nextListener++
	s.listeners[key] = l

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, key)
		s.listenersMu.Unlock()
	}
}

func (s *localStorage) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithinTx(ctx, fn)
}

func (s *localStorage) notify(ctx context.Context, change models.StorageItemChange) error {
	s.listenersMu.RLock()
	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, change); err != nil {
			logger.FromContext(ctx).Err(err).
				Str("func", "localStorage.notify").
				Str("model_name", change.Item.Name).
				Str("model_id", change.Item.ID).
				Str("kind", string(change.Kind)).
				Msg("change listener rejected the write")
			return err
		}
	}

	return nil
}
