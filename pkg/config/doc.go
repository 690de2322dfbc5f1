// Package config provides configuration management for the checker.
//
// Configuration is optional: every command works from Default(). A YAML
// file passed with --config and DAYAML_* environment variables refine it.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides(path) // path may be ""
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention DAYAML_SECTION_FIELD.
// For example:
//
//   - DAYAML_CHECK_WORKERS overrides check.workers
//   - DAYAML_CHECK_SKIP_FILES overrides check.skip_files (comma separated)
//   - DAYAML_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - DAYAML_LOGGING_LEVEL overrides logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Command-line flags, applied by the command
//
// # Example Configuration
//
//	check:
//	  workers: 8
//	  skip_files:
//	    - generated.yml
//	logging:
//	  level: debug
//	  format: json
//	server:
//	  listen_address: "0.0.0.0:8080"
//	watch:
//	  debounce: 500ms
package config
