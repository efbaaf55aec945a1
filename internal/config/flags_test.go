package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetAddress_String(t *testing.T) {
	tests := []struct {
		name     string
		addr     NetAddress
		expected string
	}{
		{name: "empty address", addr: NetAddress{}, expected: ""},
		{name: "localhost with port", addr: NetAddress{Host: "localhost", Port: 8080}, expected: "localhost:8080"},
		{name: "only port no host", addr: NetAddress{Port: 8080}, expected: ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.addr.String())
		})
	}
}

func TestNetAddress_Set(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		errorMsg     string
		expectedAddr NetAddress
	}{
		{name: "valid localhost", input: "localhost:8080", expectedAddr: NetAddress{Host: "localhost", Port: 8080}},
		{name: "valid IPv4", input: "127.0.0.1:9090", expectedAddr: NetAddress{Host: "127.0.0.1", Port: 9090}},
		{name: "all interfaces", input: ":7070", expectedAddr: NetAddress{Port: 7070}},
		{name: "missing colon", input: "localhost8080", errorMsg: "need address in a form `host:port`"},
		{name: "non-numeric port", input: "localhost:abc", errorMsg: "invalid syntax"},
		{name: "zero port", input: "localhost:0", errorMsg: "port number is a positive integer"},
		{name: "port too large", input: "localhost:70000", errorMsg: "port number is a positive integer"},
		{name: "invalid IP address", input: "invalid.host:8080", errorMsg: "incorrect IP-address provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := &NetAddress{}
			err := addr.Set(tt.input)

			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedAddr, *addr)
		})
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(t *testing.T, cfg *StructuredConfig)
	}{
		{
			name: "all flags set",
			args: []string{
				"-a", "127.0.0.1:8081",
				"-d", "/var/lib/syncd.db",
				"-driver", "sqlite3",
				"-c", "/path/to/config.json",
				"-log-level", "debug",
				"-log-file", "/var/log/syncd.log",
				"-graphql-url", "https://api.example/graphql",
				"-realtime-url", "wss://api.example/graphql",
				"-api-key", "key",
				"-token", "jwt",
				"-request-timeout", "10s",
				"-schema", "schema.json",
				"-full-sync-interval", "6h",
				"-hydration-interval", "1m",
				"-page-size", "200",
				"-max-records", "2000",
				"-workers", "8",
				"-send-timeout", "4s",
				"-save-after-delete", "queue",
				"-subscriptions",
			},
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Equal(t, "127.0.0.1:8081", cfg.Server.HTTPAddress)
				assert.Equal(t, "/var/lib/syncd.db", cfg.Storage.DB.DSN)
				assert.Equal(t, "sqlite3", cfg.Storage.DB.Driver)
				assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
				assert.Equal(t, "debug", cfg.App.LogLevel)
				assert.Equal(t, "/var/log/syncd.log", cfg.App.LogFile)
				assert.Equal(t, "https://api.example/graphql", cfg.Adapter.GraphQLURL)
				assert.Equal(t, "wss://api.example/graphql", cfg.Adapter.RealtimeURL)
				assert.Equal(t, "key", cfg.Adapter.APIKey)
				assert.Equal(t, "jwt", cfg.Adapter.Token)
				assert.Equal(t, 10*time.Second, cfg.Adapter.RequestTimeout)
				assert.Equal(t, "schema.json", cfg.Sync.SchemaPath)
				assert.Equal(t, 6*time.Hour, cfg.Sync.FullSyncInterval)
				assert.Equal(t, time.Minute, cfg.Sync.HydrationInterval)
				assert.Equal(t, 200, cfg.Sync.PageSize)
				assert.Equal(t, 2000, cfg.Sync.MaxRecords)
				assert.Equal(t, 8, cfg.Sync.Workers)
				assert.Equal(t, 4*time.Second, cfg.Sync.SendTimeout)
				assert.Equal(t, "queue", cfg.Sync.SaveAfterDelete)
				assert.True(t, cfg.Sync.Subscriptions)
			},
		},
		{
			name: "config alias flag",
			args: []string{"-config", "/path/to/config.json"},
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
			},
		},
		{
			name: "no flags",
			args: nil,
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Equal(t, &StructuredConfig{}, cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t, tt.args...)
			tt.validate(t, ParseFlags())
		})
	}
}
