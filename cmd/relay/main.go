// Relay is an HTTP gateway that answers chat requests from a pool of
// upstream LLM providers, rotating across a primary pool and falling back to
// a secondary pool when the primary provider fails.
//
// Usage:
//
//	# Start the gateway
//	relay run --config config.yaml
//
//	# Check a configuration file without starting anything
//	relay validate --config config.yaml
//
//	# Probe every pooled provider
//	relay providers check
//
//	# Inspect recorded orchestrations
//	relay attempts list --outcome failure --format json
//	relay attempts summary --since 24h
//
//	# Show version information
//	relay version
package main

import "os"

func main() {
	os.Exit(Execute())
}
