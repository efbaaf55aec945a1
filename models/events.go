// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// EventName identifies a sync engine notification.
type EventName string

const (
	EventOutboxMutationEnqueued  EventName = "outboxMutationEnqueued"
	EventOutboxMutationProcessed EventName = "outboxMutationProcessed"
	EventOutboxMutationFailed    EventName = "outboxMutationFailed"
	EventOutboxStatus            EventName = "outboxStatus"
	EventConflictDetected        EventName = "conflictDetected"
	EventNetworkRetry            EventName = "networkRetry"

	EventSyncQueriesStarted        EventName = "syncQueriesStarted"
	EventModelSynced               EventName = "modelSynced"
	EventSyncQueriesReady          EventName = "syncQueriesReady"
	EventHydrationFailed           EventName = "hydrationFailed"
	EventSubscriptionDataProcessed EventName = "subscriptionDataProcessed"
	EventReady                     EventName = "ready"
)

// Event is a notification published by the engine. Payload is one of the
// *Payload types below, or nil.
type Event struct {
	Name    EventName `json:"name"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(name EventName, payload any) Event {
	return Event{Name: name, Payload: payload, At: time.Now().UTC()}
}

// MutationEventPayload accompanies outbox mutation events.
type MutationEventPayload struct {
	Record ChangeRecord `json:"record"`
	Error  string       `json:"error,omitempty"`
}

// OutboxStatusPayload reports whether the outbox has drained.
type OutboxStatusPayload struct {
	IsEmpty bool `json:"is_empty"`
}

// ConflictEventPayload describes a version conflict seen at send time.
type ConflictEventPayload struct {
	Record     ChangeRecord       `json:"record"`
	Remote     *ModelWithMetadata `json:"remote,omitempty"`
	Resolution string             `json:"resolution"`
}

// NetworkRetryPayload reports a transient send failure that will be retried.
type NetworkRetryPayload struct {
	Record  ChangeRecord `json:"record"`
	Attempt int          `json:"attempt"`
	Error   string       `json:"error"`
}

// SyncQueriesStartedPayload lists the model types about to be hydrated.
type SyncQueriesStartedPayload struct {
	ModelNames []string `json:"model_names"`
}

// ModelSyncedPayload summarises one hydrated model type.
type ModelSyncedPayload struct {
	ModelName  string `json:"model_name"`
	IsFullSync bool   `json:"is_full_sync"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Deleted    int    `json:"deleted"`
	Skipped    int    `json:"skipped"`
}

// HydrationFailedPayload carries the error that aborted a hydration.
type HydrationFailedPayload struct {
	Error string `json:"error"`
}

// SubscriptionDataPayload carries a remote change applied from a live
// subscription.
type SubscriptionDataPayload struct {
	Item    ModelWithMetadata `json:"item"`
	Applied bool              `json:"applied"`
}
