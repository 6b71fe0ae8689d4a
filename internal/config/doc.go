// Package config provides configuration management for the catalog updater.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from a JSON or YAML file
//   - Environment variable overrides (CHROME_EXTENSIONS_ prefix)
//   - Validation
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Data in ./data, registry ./data/all.json
//	// Up to 10 concurrent resolutions/fetches
//	// Fail-fast per shard
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// An empty path skips the file and only applies defaults and the environment:
//
//	CHROME_EXTENSIONS_DATA_DIR=/srv/data CHROME_EXTENSIONS_KEEP_GOING=true chrome-extensions update 1/4
package config
