// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"strings"
)

// validate checks that the final merged [StructuredConfig] is usable before
// it is converted. Only values that can be wrong on their own are checked
// here; required fields are enforced by [EngineConfig.validate] once
// defaults are applied.
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.PageSize < 0 || cfg.Sync.MaxRecords < 0 || cfg.Sync.Workers < 0 {
		return fmt.Errorf("%w: negative sizes are not allowed", ErrInvalidSyncConfigs)
	}

	return nil
}

func (cfg *EngineConfig) validate() error {
	switch cfg.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidStorageConfigs, cfg.Storage.Driver)
	}
	if cfg.Storage.DSN == "" || strings.Contains(cfg.Storage.DSN, ":memory:") {
		return fmt.Errorf("%w: a file or server DSN is required", ErrInvalidStorageConfigs)
	}

	if cfg.Adapter.GraphQLURL == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}
	if cfg.Sync.Subscriptions && cfg.Adapter.RealtimeURL == "" {
		return fmt.Errorf("%w: subscriptions need a realtime url", ErrInvalidAdapterConfigs)
	}

	s := cfg.Sync
	if s.SchemaPath == "" {
		return fmt.Errorf("%w: schema path is required", ErrInvalidSyncConfigs)
	}
	if s.PageSize <= 0 || s.MaxRecords <= 0 || s.Workers <= 0 {
		return fmt.Errorf("%w: page size, max records and workers must be positive", ErrInvalidSyncConfigs)
	}
	if s.SendTimeout <= 0 || s.BackoffBase <= 0 || s.BackoffMax < s.BackoffBase {
		return fmt.Errorf("%w: bad send timeout or backoff", ErrInvalidSyncConfigs)
	}
	if s.SaveAfterDelete != SaveAfterDeleteReject && s.SaveAfterDelete != SaveAfterDeleteQueue {
		return fmt.Errorf("%w: unknown save-after-delete policy %q", ErrInvalidSyncConfigs, s.SaveAfterDelete)
	}

	if cfg.Server.HTTPAddress != "" && cfg.Server.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	return nil
}
