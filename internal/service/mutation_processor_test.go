// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/mock"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

type processorFixture struct {
	storages  *store.Storages
	outbox    *MutationOutbox
	remote    *mock.MockRemoteEndpoint
	publisher *recordingPublisher
	processor *MutationProcessor
}

func newProcessorFixture(t *testing.T, handler ConflictHandler) *processorFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	o, s, pub := newTestOutbox(t, "")
	remote := mock.NewMockRemoteEndpoint(ctrl)

	return &processorFixture{
		storages:  s,
		outbox:    o,
		remote:    remote,
		publisher: pub,
		processor: NewMutationProcessor(o, remote, s.Local, NewMerger(s.Local, o), handler, pub, fastSync(), logger.Nop()),
	}
}

// enqueue stores m locally and queues the change, like a local write does.
func (f *processorFixture) enqueue(t *testing.T, change models.StorageItemChange) models.ChangeRecord {
	t.Helper()
	ctx := context.Background()

	if change.Kind == models.MutationSave {
		require.NoError(t, f.storages.Local.Save(ctx, change.Item, models.InitiatorLocal))
	}
	require.NoError(t, f.outbox.Enqueue(ctx, change))

	rec, err := f.outbox.Next(ctx)
	require.NoError(t, err)
	return rec
}

func (f *processorFixture) metadata(t *testing.T, id string) models.ModelMetadata {
	t.Helper()

	md, err := f.storages.Local.GetMetadata(context.Background(), models.Identity{ModelName: "Post", ModelID: id})
	require.NoError(t, err)
	return md
}

// ── send mapping ──

func TestMutationProcessor_Create(t *testing.T) {
	f := newProcessorFixture(t, nil)
	rec := f.enqueue(t, saveChange(post("p1", "hello")))

	f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item models.Model) (models.ModelWithMetadata, error) {
			assert.Equal(t, "p1", item.ID)
			return remotePost("p1", "hello", 1), nil
		})

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, int64(1), f.metadata(t, "p1").Version)
	assert.Len(t, f.publisher.Find(models.EventOutboxMutationProcessed), 1)
}

func TestMutationProcessor_Update_UsesStoredVersion(t *testing.T) {
	f := newProcessorFixture(t, nil)
	seedRemote(t, f.storages.Local, remotePost("p1", "v3", 3))
	rec := f.enqueue(t, saveChange(post("p1", "edited")))

	f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(3)).
		Return(remotePost("p1", "edited", 4), nil)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, int64(4), f.metadata(t, "p1").Version)
	assert.Equal(t, "edited", title(t, f.storages.Local, "p1"))
}

func TestMutationProcessor_Delete(t *testing.T) {
	f := newProcessorFixture(t, nil)
	seedRemote(t, f.storages.Local, remotePost("p1", "v2", 2))
	rec := f.enqueue(t, deleteChange(post("p1", "v2")))

	f.remote.EXPECT().Delete(gomock.Any(), gomock.Any(), int64(2)).
		Return(tombstone("p1", 3), nil)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	md := f.metadata(t, "p1")
	assert.True(t, md.Deleted)
	assert.Equal(t, int64(3), md.Version)
}

func TestMutationProcessor_Delete_NeverSynced(t *testing.T) {
	// without metadata there is nothing to delete remotely; gomock fails on any call
	f := newProcessorFixture(t, nil)
	rec := f.enqueue(t, deleteChange(post("p1", "local only")))

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Len(t, f.publisher.Find(models.EventOutboxMutationProcessed), 1)
}

// ── failures ──

func TestMutationProcessor_RetriesTransientFailures(t *testing.T) {
	f := newProcessorFixture(t, nil)
	rec := f.enqueue(t, saveChange(post("p1", "hello")))

	gomock.InOrder(
		f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.ModelWithMetadata{}, adapter.ErrUnavailable),
		f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.ModelWithMetadata{}, adapter.ErrTooManyRequests),
		f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).Return(remotePost("p1", "hello", 1), nil),
	)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	retries := f.publisher.Find(models.EventNetworkRetry)
	require.Len(t, retries, 2)
	assert.Equal(t, 1, retries[0].Payload.(models.NetworkRetryPayload).Attempt)
	assert.Equal(t, 2, retries[1].Payload.(models.NetworkRetryPayload).Attempt)
}

func TestMutationProcessor_NonRetryableDropsRecord(t *testing.T) {
	f := newProcessorFixture(t, nil)
	rec := f.enqueue(t, saveChange(post("p1", "hello")))

	f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.ModelWithMetadata{}, adapter.ErrBadRequest)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	failed := f.publisher.Find(models.EventOutboxMutationFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Payload.(models.MutationEventPayload).Error, adapter.ErrBadRequest.Error())
	assert.Empty(t, f.publisher.Find(models.EventOutboxMutationProcessed))

	// the local model is left as is
	assert.Equal(t, "hello", title(t, f.storages.Local, "p1"))
}

func TestMutationProcessor_CancelDuringBackoffKeepsRecord(t *testing.T) {
	f := newProcessorFixture(t, nil)
	rec := f.enqueue(t, saveChange(post("p1", "hello")))

	f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(models.ModelWithMetadata{}, adapter.ErrUnavailable).AnyTimes()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	f.processor.process(ctx, rec)

	assert.Equal(t, 1, f.outbox.Len())
	assert.Empty(t, f.publisher.Find(models.EventOutboxMutationFailed))

	again, err := f.outbox.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
}

// ── conflicts ──

func TestMutationProcessor_Conflict_ApplyRemote(t *testing.T) {
	f := newProcessorFixture(t, nil)
	seedRemote(t, f.storages.Local, remotePost("p1", "base", 1))
	rec := f.enqueue(t, saveChange(post("p1", "mine")))

	theirs := remotePost("p1", "theirs", 2)
	f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(1)).
		Return(models.ModelWithMetadata{}, &adapter.ConflictError{Remote: &theirs})

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, "theirs", title(t, f.storages.Local, "p1"))
	assert.Equal(t, int64(2), f.metadata(t, "p1").Version)

	conflicts := f.publisher.Find(models.EventConflictDetected)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "apply_remote", conflicts[0].Payload.(models.ConflictEventPayload).Resolution)
	assert.Empty(t, f.publisher.Find(models.EventOutboxMutationFailed))
}

func TestMutationProcessor_Conflict_RetryLocal(t *testing.T) {
	var seen ConflictData
	handler := ConflictHandlerFunc(func(_ context.Context, c ConflictData) (ConflictDecision, error) {
		seen = c
		return ConflictDecision{Resolution: ResolveRetryLocal}, nil
	})
	f := newProcessorFixture(t, handler)
	seedRemote(t, f.storages.Local, remotePost("p1", "base", 1))
	rec := f.enqueue(t, saveChange(post("p1", "mine")))

	theirs := remotePost("p1", "theirs", 2)
	gomock.InOrder(
		f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(1)).
			Return(models.ModelWithMetadata{}, &adapter.ConflictError{Remote: &theirs}),
		f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(2)).
			Return(remotePost("p1", "mine", 3), nil),
	)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 1, seen.Attempt)
	assert.Equal(t, rec.ID, seen.Record.ID)
	require.NotNil(t, seen.Remote)
	assert.Equal(t, int64(2), seen.Remote.Metadata.Version)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, "mine", title(t, f.storages.Local, "p1"))
	assert.Equal(t, int64(3), f.metadata(t, "p1").Version)
}

func TestMutationProcessor_Conflict_RetryWith(t *testing.T) {
	handler := ConflictHandlerFunc(func(context.Context, ConflictData) (ConflictDecision, error) {
		return ConflictDecision{Resolution: ResolveRetryWith, Model: post("ignored", "merged")}, nil
	})
	f := newProcessorFixture(t, handler)
	seedRemote(t, f.storages.Local, remotePost("p1", "base", 1))
	rec := f.enqueue(t, saveChange(post("p1", "mine")))

	theirs := remotePost("p1", "theirs", 2)
	gomock.InOrder(
		f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(1)).
			Return(models.ModelWithMetadata{}, &adapter.ConflictError{Remote: &theirs}),
		f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(2)).
			DoAndReturn(func(_ context.Context, item models.Model, _ int64) (models.ModelWithMetadata, error) {
				assert.Equal(t, "p1", item.ID, "identity of the record is kept")
				v, _ := item.Field("title")
				assert.Equal(t, "merged", v)
				return remotePost("p1", "merged", 3), nil
			}),
	)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, "merged", title(t, f.storages.Local, "p1"))
}

func TestMutationProcessor_Conflict_PersistsAfterRetry(t *testing.T) {
	handler := ConflictHandlerFunc(func(context.Context, ConflictData) (ConflictDecision, error) {
		return ConflictDecision{Resolution: ResolveRetryLocal}, nil
	})
	f := newProcessorFixture(t, handler)
	seedRemote(t, f.storages.Local, remotePost("p1", "base", 1))
	rec := f.enqueue(t, saveChange(post("p1", "mine")))

	v2, v3 := remotePost("p1", "theirs", 2), remotePost("p1", "theirs again", 3)
	gomock.InOrder(
		f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(1)).
			Return(models.ModelWithMetadata{}, &adapter.ConflictError{Remote: &v2}),
		f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(2)).
			Return(models.ModelWithMetadata{}, &adapter.ConflictError{Remote: &v3}),
	)

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, "theirs again", title(t, f.storages.Local, "p1"))
	assert.Equal(t, int64(3), f.metadata(t, "p1").Version)

	failed := f.publisher.Find(models.EventOutboxMutationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, ErrConflictUnresolved.Error(), failed[0].Payload.(models.MutationEventPayload).Error)
}

func TestMutationProcessor_Conflict_HandlerError(t *testing.T) {
	handler := ConflictHandlerFunc(func(context.Context, ConflictData) (ConflictDecision, error) {
		return ConflictDecision{}, errors.New("handler exploded")
	})
	f := newProcessorFixture(t, handler)
	seedRemote(t, f.storages.Local, remotePost("p1", "base", 1))
	rec := f.enqueue(t, saveChange(post("p1", "mine")))

	theirs := remotePost("p1", "theirs", 2)
	f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(1)).
		Return(models.ModelWithMetadata{}, &adapter.ConflictError{Remote: &theirs})

	f.processor.process(context.Background(), rec)

	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, "theirs", title(t, f.storages.Local, "p1"))
}

func TestMutationProcessor_Conflict_WithoutRemoteRecord(t *testing.T) {
	handler := ConflictHandlerFunc(func(context.Context, ConflictData) (ConflictDecision, error) {
		return ConflictDecision{Resolution: ResolveRetryLocal}, nil
	})
	f := newProcessorFixture(t, handler)
	seedRemote(t, f.storages.Local, remotePost("p1", "base", 1))
	rec := f.enqueue(t, saveChange(post("p1", "mine")))

	f.remote.EXPECT().Update(gomock.Any(), gomock.Any(), int64(1)).
		Return(models.ModelWithMetadata{}, &adapter.ConflictError{Message: "conditional check failed"})

	f.processor.process(context.Background(), rec)

	// unknown version, nothing to retry
	assert.Equal(t, 0, f.outbox.Len())
	assert.Equal(t, "mine", title(t, f.storages.Local, "p1"))
	assert.Len(t, f.publisher.Find(models.EventOutboxMutationFailed), 1)
}

// ── Run ──

func TestMutationProcessor_Run_DrainsInOrder(t *testing.T) {
	f := newProcessorFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.outbox.Enqueue(ctx, saveChange(post("p1", "a"))))
	require.NoError(t, f.outbox.Enqueue(ctx, saveChange(post("p2", "b"))))

	var order []string
	f.remote.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item models.Model) (models.ModelWithMetadata, error) {
			order = append(order, item.ID)
			return remotePost(item.ID, "x", 1), nil
		}).Times(2)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, f.processor.Run(runCtx))
	}()

	require.Eventually(t, func() bool {
		return f.outbox.Len() == 0 && f.processor.State() == ProcessorDraining
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, []string{"p1", "p2"}, order)
	assert.Equal(t, ProcessorStopped, f.processor.State())
}
