// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// engine daemon. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds process-level settings such as logging.
	App App `envPrefix:"APP_"`

	// Storage holds the local database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the ops HTTP endpoint settings.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the remote GraphQL endpoint settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds outbox draining and hydration tuning.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds process-level configuration values.
type App struct {
	// LogLevel is a zerolog level name ("debug", "info", ...).
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// LogFile enables rotating file output when set.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`

	// Version is reported by the ops endpoint.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the configuration for the local persistence backend.
type Storage struct {
	// DB holds the relational database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local database.
type DB struct {
	// Driver is "sqlite3" (default) or "pgx".
	// Env: STORAGE_DB_DRIVER
	Driver string `env:"DRIVER"`

	// DSN is the SQLite file path or PostgreSQL connection string.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Server holds network and timeout settings for the ops HTTP endpoint.
type Server struct {
	// HTTPAddress is the "host:port" the ops endpoint listens on. Empty
	// disables the endpoint.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single ops request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the remote endpoint settings.
type Adapter struct {
	// GraphQLURL is the HTTP endpoint for queries and mutations.
	// Env: ADAPTER_GRAPHQL_URL
	GraphQLURL string `env:"GRAPHQL_URL"`

	// RealtimeURL is the websocket endpoint for subscriptions.
	// Env: ADAPTER_REALTIME_URL
	RealtimeURL string `env:"REALTIME_URL"`

	// APIKey is sent as x-api-key when no token is configured.
	// Env: ADAPTER_API_KEY
	APIKey string `env:"API_KEY"`

	// Token is a bearer JWT sent with every request.
	// Env: ADAPTER_TOKEN
	Token string `env:"TOKEN"`

	// RequestTimeout bounds a single HTTP round trip.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync holds the engine tuning knobs.
type Sync struct {
	// SchemaPath points to the JSON model schema document.
	// Env: SYNC_SCHEMA_PATH
	SchemaPath string `env:"SCHEMA_PATH"`

	// FullSyncInterval forces a base sync for a model type whose last full
	// sync is older than this.
	// Env: SYNC_FULL_SYNC_INTERVAL
	FullSyncInterval time.Duration `env:"FULL_SYNC_INTERVAL"`

	// HydrationInterval is the period of the background re-hydration job.
	// Env: SYNC_HYDRATION_INTERVAL
	HydrationInterval time.Duration `env:"HYDRATION_INTERVAL"`

	// PageSize is the sync query page limit.
	// Env: SYNC_PAGE_SIZE
	PageSize int `env:"PAGE_SIZE"`

	// MaxRecords caps items fetched per model type per hydration.
	// Env: SYNC_MAX_RECORDS
	MaxRecords int `env:"MAX_RECORDS"`

	// Workers bounds concurrent per-type sync queries.
	// Env: SYNC_WORKERS
	Workers int `env:"WORKERS"`

	// SendTimeout bounds a single outbound mutation attempt.
	// Env: SYNC_SEND_TIMEOUT
	SendTimeout time.Duration `env:"SEND_TIMEOUT"`

	// BackoffBase and BackoffMax shape the retry backoff for transient
	// send failures.
	// Env: SYNC_BACKOFF_BASE, SYNC_BACKOFF_MAX
	BackoffBase time.Duration `env:"BACKOFF_BASE"`
	BackoffMax  time.Duration `env:"BACKOFF_MAX"`

	// SaveAfterDelete is "reject" or "queue".
	// Env: SYNC_SAVE_AFTER_DELETE
	SaveAfterDelete string `env:"SAVE_AFTER_DELETE"`

	// ContinueOnError keeps hydrating other model types when one fails.
	// Env: SYNC_CONTINUE_ON_ERROR
	ContinueOnError bool `env:"CONTINUE_ON_ERROR"`

	// Subscriptions enables realtime remote change subscriptions.
	// Env: SYNC_SUBSCRIPTIONS
	Subscriptions bool `env:"SUBSCRIPTIONS"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
