package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] for the JSON file source.
// Durations are accepted as strings ("30s") or nanosecond numbers.
type StructuredJSONConfig struct {
	App struct {
		LogLevel string `json:"log_level"`
		LogFile  string `json:"log_file"`
		Version  string `json:"version"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			Driver string `json:"driver"`
			DSN    string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Adapter struct {
		GraphQLURL     string   `json:"graphql_url"`
		RealtimeURL    string   `json:"realtime_url"`
		APIKey         string   `json:"api_key"`
		Token          string   `json:"token"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Sync struct {
		SchemaPath        string   `json:"schema_path"`
		FullSyncInterval  Duration `json:"full_sync_interval"`
		HydrationInterval Duration `json:"hydration_interval"`
		PageSize          int      `json:"page_size"`
		MaxRecords        int      `json:"max_records"`
		Workers           int      `json:"workers"`
		SendTimeout       Duration `json:"send_timeout"`
		BackoffBase       Duration `json:"backoff_base"`
		BackoffMax        Duration `json:"backoff_max"`
		SaveAfterDelete   string   `json:"save_after_delete"`
		ContinueOnError   bool     `json:"continue_on_error"`
		Subscriptions     bool     `json:"subscriptions"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			LogLevel: jsonCfg.App.LogLevel,
			LogFile:  jsonCfg.App.LogFile,
			Version:  jsonCfg.App.Version,
		},
		Storage: Storage{
			DB: DB{
				Driver: jsonCfg.Storage.DB.Driver,
				DSN:    jsonCfg.Storage.DB.DSN,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Adapter: Adapter{
			GraphQLURL:     jsonCfg.Adapter.GraphQLURL,
			RealtimeURL:    jsonCfg.Adapter.RealtimeURL,
			APIKey:         jsonCfg.Adapter.APIKey,
			Token:          jsonCfg.Adapter.Token,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Sync: Sync{
			SchemaPath:        jsonCfg.Sync.SchemaPath,
			FullSyncInterval:  time.Duration(jsonCfg.Sync.FullSyncInterval),
			HydrationInterval: time.Duration(jsonCfg.Sync.HydrationInterval),
			PageSize:          jsonCfg.Sync.PageSize,
			MaxRecords:        jsonCfg.Sync.MaxRecords,
			Workers:           jsonCfg.Sync.Workers,
			SendTimeout:       time.Duration(jsonCfg.Sync.SendTimeout),
			BackoffBase:       time.Duration(jsonCfg.Sync.BackoffBase),
			BackoffMax:        time.Duration(jsonCfg.Sync.BackoffMax),
			SaveAfterDelete:   jsonCfg.Sync.SaveAfterDelete,
			ContinueOnError:   jsonCfg.Sync.ContinueOnError,
			Subscriptions:     jsonCfg.Sync.Subscriptions,
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
