// Package config handles loading and validating the RF433 bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Conversion of the receiver section into an rf433.Config
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/rf433.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rc, _ := cfg.ReceiverConfig()
package config
