package config

import "errors"

// Validation errors returned by [NewEngineConfig] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates invalid remote endpoint settings
	// (for example, a missing GraphQL URL).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, an unknown driver or an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates invalid engine tuning (for example,
	// a missing schema path or a backoff maximum below its base).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidServerConfigs indicates invalid ops endpoint settings.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
)
