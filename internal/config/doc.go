// Package config loads and validates the trawler TOML configuration,
// including task definitions, matcher tuning, and IMDb client settings.
package config
