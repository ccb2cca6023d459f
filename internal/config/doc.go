// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file, when present, is loaded into the environment first. A missing
// config file is not an error: defaults and environment overrides apply.
//
// Upstream credentials may also come from POLYGON_API_KEY and FINNHUB_TOKEN,
// which take precedence over the file.
package config
