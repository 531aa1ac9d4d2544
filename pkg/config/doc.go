// Package config provides configuration management for the relay gateway.
//
// Configuration is read from a YAML file, decoded on top of Default, filled
// with zero-value defaults by ApplyDefaults and checked by Validate, which
// collects every problem into a single ValidationError.
//
//	cfg, err := config.LoadConfig("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Variables follow the naming convention RELAY_SECTION_FIELD:
//
//   - RELAY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - RELAY_ROUTING_PRIMARY overrides routing.primary (comma separated)
//   - RELAY_PROVIDER_<NAME>_API_KEY overrides providers.<name>.api_key
//   - RELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Process Configuration
//
// Initialize installs the configuration for the process and GetConfig
// returns it. ReloadConfig swaps in a freshly loaded configuration only when
// it validates. Watcher drives ReloadConfig from file system events.
//
// Provider pools are fixed for the lifetime of a process. A reload that
// changes them is accepted for the other sections and logged as requiring a
// restart.
package config
