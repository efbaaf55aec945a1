package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags from flag.CommandLine.
//
// Flags:
//
//	-a ops server address in format [host]:[port]
//	-d database DSN
//	-driver database driver (sqlite3, pgx)
//	-c/-config json file path with configs
//	-log-level log level
//	-log-file rotating log file path
//	-graphql-url remote GraphQL endpoint
//	-realtime-url remote websocket endpoint
//	-api-key remote API key
//	-token remote bearer token
//	-request-timeout remote request timeout (e.g., "30s", "1m")
//	-schema model schema JSON path
//	-full-sync-interval forced base sync interval
//	-hydration-interval background hydration interval
//	-page-size sync page size
//	-max-records max records per model type
//	-workers concurrent sync queries
//	-send-timeout single mutation send timeout
//	-save-after-delete reject|queue
//	-subscriptions enable realtime subscriptions
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var cfg StructuredConfig
	var requestTimeout, fullSync, hydration, sendTimeout time.Duration

	fs := flag.CommandLine
	fs.Var(&serverAddress, "a", "Ops server net address host:port")
	fs.StringVar(&cfg.Storage.DB.DSN, "d", "", "Database DSN")
	fs.StringVar(&cfg.Storage.DB.Driver, "driver", "", "Database driver (sqlite3, pgx)")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&cfg.App.LogLevel, "log-level", "", "Log level")
	fs.StringVar(&cfg.App.LogFile, "log-file", "", "Rotating log file path")
	fs.StringVar(&cfg.Adapter.GraphQLURL, "graphql-url", "", "Remote GraphQL URL")
	fs.StringVar(&cfg.Adapter.RealtimeURL, "realtime-url", "", "Remote realtime websocket URL")
	fs.StringVar(&cfg.Adapter.APIKey, "api-key", "", "Remote API key")
	fs.StringVar(&cfg.Adapter.Token, "token", "", "Remote bearer token")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Remote request timeout (e.g., 30s, 1m)")
	fs.StringVar(&cfg.Sync.SchemaPath, "schema", "", "Model schema JSON path")
	fs.DurationVar(&fullSync, "full-sync-interval", 0, "Forced base sync interval (e.g., 24h)")
	fs.DurationVar(&hydration, "hydration-interval", 0, "Background hydration interval (e.g., 5m)")
	fs.IntVar(&cfg.Sync.PageSize, "page-size", 0, "Sync page size")
	fs.IntVar(&cfg.Sync.MaxRecords, "max-records", 0, "Max records per model type")
	fs.IntVar(&cfg.Sync.Workers, "workers", 0, "Concurrent sync queries")
	fs.DurationVar(&sendTimeout, "send-timeout", 0, "Single mutation send timeout")
	fs.StringVar(&cfg.Sync.SaveAfterDelete, "save-after-delete", "", "Save after delete policy (reject, queue)")
	fs.BoolVar(&cfg.Sync.Subscriptions, "subscriptions", false, "Enable realtime subscriptions")

	flag.Parse()

	cfg.Server.HTTPAddress = serverAddress.String()
	cfg.Adapter.RequestTimeout = requestTimeout
	cfg.Sync.FullSyncInterval = fullSync
	cfg.Sync.HydrationInterval = hydration
	cfg.Sync.SendTimeout = sendTimeout

	return &cfg
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is
// "localhost" or empty, and returns an error if the format or values are
// invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number is a positive integer up to 65535")
	}

	if host != "localhost" && host != "" {
		if ip := net.ParseIP(host); ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
