package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := New(logger.Nop())
	assert.NotPanics(t, func() {
		h.Publish(context.Background(), models.NewEvent(models.EventReady, nil))
	})
}

func TestHub_SubscribeReceives(t *testing.T) {
	h := New(logger.Nop())
	ch, cancel := h.Subscribe(4)
	defer cancel()

	h.Publish(context.Background(), models.NewEvent(models.EventOutboxStatus, models.OutboxStatusPayload{IsEmpty: true}))

	e := <-ch
	assert.Equal(t, models.EventOutboxStatus, e.Name)
	assert.Equal(t, models.OutboxStatusPayload{IsEmpty: true}, e.Payload)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := New(logger.Nop())
	ch, cancel := h.Subscribe(1)
	defer cancel()

	ctx := context.Background()
	h.Publish(ctx, models.NewEvent(models.EventReady, nil))
	h.Publish(ctx, models.NewEvent(models.EventReady, nil))
	h.Publish(ctx, models.NewEvent(models.EventReady, nil))

	assert.Len(t, ch, 1)
	assert.Equal(t, 2, h.Dropped())
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := New(logger.Nop())
	ch, cancel := h.Subscribe(1)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	h.Publish(context.Background(), models.NewEvent(models.EventReady, nil))
}

func TestHub_HooksRecoverFromPanics(t *testing.T) {
	h := New(logger.Nop())

	var seen []models.EventName
	h.OnEvent(func(context.Context, models.Event) { panic("boom") })
	h.OnEvent(func(_ context.Context, e models.Event) { seen = append(seen, e.Name) })

	h.Publish(context.Background(), models.NewEvent(models.EventConflictDetected, nil))
	assert.Equal(t, []models.EventName{models.EventConflictDetected}, seen)
}

func TestHub_Close(t *testing.T) {
	h := New(logger.Nop())
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late, lateCancel := h.Subscribe(1)
	defer lateCancel()
	_, ok = <-late
	require.False(t, ok)
}
