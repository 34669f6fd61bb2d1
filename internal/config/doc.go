// Package config provides centralized configuration management for the
// converter. It merges layered sources into one validated, type-safe
// Config consumed by the CLI and the conversion pipeline.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of
// precedence:
//
//	1. Environment variables (highest priority)
//	2. An optional YAML file
//	3. Built-in defaults (lowest priority)
//
// When no file is passed explicitly, the loader probes nwbconv.yaml,
// config.yaml, and configs/nwbconv.yaml in the working directory.
//
// # Environment Variables
//
// All environment variables carry the NWBCONV_ prefix, with nested
// sections joined by underscores:
//
//	NWBCONV_OUTPUT_DIR=converted
//	NWBCONV_BATCH_WORKERS=8
//	NWBCONV_LOGGING_LEVEL=debug
//	NWBCONV_LOGGING_FILE_PATH=logs/nwbconv.log
//	NWBCONV_TELEMETRY_METRICS_FILE=logs/nwbconv-metrics.prom
//
// # Validation
//
// The merged configuration is validated before use. Unknown logging
// formats and outputs are normalized to the supported values instead
// of failing, while out-of-range worker counts and missing required
// fields are reported as errors.
//
// Example usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    cfg = config.Default()
//	}
//	dest := cfg.Output.DestinationDir(sourcePath)
package config
