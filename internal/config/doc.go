// Package config provides configuration loading, merging, and validation
// facilities for the sync engine daemon.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//
// [GetStructuredConfig] returns the raw merged sources; [GetEngineConfig]
// returns the validated runtime view with defaults applied.
package config
