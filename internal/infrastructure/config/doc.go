// Package config handles loading and validating cloud bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading a .env file for credentials kept out of the YAML
//   - Overriding with CLOUDBRIDGE_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The device cloud secret and JWT secret should come from the environment
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Cloud.Region)
package config
