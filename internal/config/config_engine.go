package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported local database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Save-after-delete policies.
const (
	SaveAfterDeleteReject = "reject"
	SaveAfterDeleteQueue  = "queue"
)

// Engine defaults applied by [NewEngineConfig] to unset fields.
const (
	DefaultDSN               = "syncd.db"
	DefaultFullSyncInterval  = 24 * time.Hour
	DefaultHydrationInterval = 5 * time.Minute
	DefaultPageSize          = 1000
	DefaultMaxRecords        = 10000
	DefaultWorkers           = 4
	DefaultSendTimeout       = 30 * time.Second
	DefaultBackoffBase       = 500 * time.Millisecond
	DefaultBackoffMax        = time.Minute
	DefaultRequestTimeout    = 30 * time.Second
)

// EngineApp holds process-level runtime settings.
type EngineApp struct {
	LogLevel string
	LogFile  string
	Version  string
}

// EngineStorage holds local database settings.
type EngineStorage struct {
	// Driver is [DriverSQLite] or [DriverPostgres].
	Driver string
	DSN    string
}

// EngineAdapter holds remote endpoint settings.
type EngineAdapter struct {
	GraphQLURL     string
	RealtimeURL    string
	APIKey         string
	Token          string
	RequestTimeout time.Duration
}

// EngineSync holds outbox draining and hydration tuning.
type EngineSync struct {
	SchemaPath        string
	FullSyncInterval  time.Duration
	HydrationInterval time.Duration
	PageSize          int
	MaxRecords        int
	Workers           int
	SendTimeout       time.Duration
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	SaveAfterDelete   string
	ContinueOnError   bool
	Subscriptions     bool
}

// EngineServer holds ops endpoint settings. An empty HTTPAddress disables
// the endpoint.
type EngineServer struct {
	HTTPAddress    string
	RequestTimeout time.Duration
}

// EngineConfig is the validated runtime view of [StructuredConfig] with
// defaults applied.
type EngineConfig struct {
	App     EngineApp
	Storage EngineStorage
	Adapter EngineAdapter
	Sync    EngineSync
	Server  EngineServer
}

// DefaultEngineSync returns the sync tuning used when nothing is configured.
func DefaultEngineSync() EngineSync {
	return EngineSync{
		FullSyncInterval:  DefaultFullSyncInterval,
		HydrationInterval: DefaultHydrationInterval,
		PageSize:          DefaultPageSize,
		MaxRecords:        DefaultMaxRecords,
		Workers:           DefaultWorkers,
		SendTimeout:       DefaultSendTimeout,
		BackoffBase:       DefaultBackoffBase,
		BackoffMax:        DefaultBackoffMax,
		SaveAfterDelete:   SaveAfterDeleteReject,
	}
}

// GetEngineConfig loads the merged structured configuration via
// [GetStructuredConfig] and converts it with [NewEngineConfig].
func GetEngineConfig() (*EngineConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return NewEngineConfig(cfg)
}

// NewEngineConfig maps cfg to an [EngineConfig], fills defaults for unset
// fields and validates the result.
func NewEngineConfig(cfg *StructuredConfig) (*EngineConfig, error) {
	sync := DefaultEngineSync()
	sync.SchemaPath = cfg.Sync.SchemaPath
	sync.ContinueOnError = cfg.Sync.ContinueOnError
	sync.Subscriptions = cfg.Sync.Subscriptions
	setDuration(&sync.FullSyncInterval, cfg.Sync.FullSyncInterval)
	setDuration(&sync.HydrationInterval, cfg.Sync.HydrationInterval)
	setDuration(&sync.SendTimeout, cfg.Sync.SendTimeout)
	setDuration(&sync.BackoffBase, cfg.Sync.BackoffBase)
	setDuration(&sync.BackoffMax, cfg.Sync.BackoffMax)
	setInt(&sync.PageSize, cfg.Sync.PageSize)
	setInt(&sync.MaxRecords, cfg.Sync.MaxRecords)
	setInt(&sync.Workers, cfg.Sync.Workers)
	if policy := strings.ToLower(strings.TrimSpace(cfg.Sync.SaveAfterDelete)); policy != "" {
		sync.SaveAfterDelete = policy
	}

	engineCfg := &EngineConfig{
		App: EngineApp{
			LogLevel: cfg.App.LogLevel,
			LogFile:  cfg.App.LogFile,
			Version:  cfg.App.Version,
		},
		Storage: EngineStorage{
			Driver: cfg.Storage.DB.Driver,
			DSN:    cfg.Storage.DB.DSN,
		},
		Adapter: EngineAdapter{
			GraphQLURL:     cfg.Adapter.GraphQLURL,
			RealtimeURL:    cfg.Adapter.RealtimeURL,
			APIKey:         cfg.Adapter.APIKey,
			Token:          cfg.Adapter.Token,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Sync: sync,
		Server: EngineServer{
			HTTPAddress:    cfg.Server.HTTPAddress,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
	}

	if engineCfg.Storage.Driver == "" {
		engineCfg.Storage.Driver = DriverSQLite
	}
	if engineCfg.Storage.DSN == "" && engineCfg.Storage.Driver == DriverSQLite {
		engineCfg.Storage.DSN = DefaultDSN
	}
	if engineCfg.Adapter.RequestTimeout == 0 {
		engineCfg.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if engineCfg.Server.RequestTimeout == 0 {
		engineCfg.Server.RequestTimeout = DefaultRequestTimeout
	}

	return engineCfg, engineCfg.validate()
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
