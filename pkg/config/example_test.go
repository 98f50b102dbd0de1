package config_test

import (
	"fmt"
	"log"

	"github.com/rtstore/rtstore/pkg/config"
)

// ExampleDefault demonstrates the default configuration.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("Log level: %s\n", cfg.Logging.Level)
	fmt.Printf("Snapshot compression: %s\n", cfg.Meta.SnapshotCompression)

	// Output:
	// Backend: local
	// Log level: info
	// Snapshot compression: zstd
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendS3
	cfg.Storage.Bucket = "rtstore-data"
	cfg.Storage.Region = "us-east-1"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")

	// Output:
	// Configuration is valid!
}
