package common

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/syncstore/lib/db"
)

// --------------------------------------------------------------------------
// Store configuration struct
// --------------------------------------------------------------------------

// StoreConfig holds all parameters needed to open a store from the cli
type StoreConfig struct {
	// Storage
	DataDir     string
	Engine      db.Implementation
	SyncWrites  bool
	CacheSizeMB int64 // pebble block cache

	// Tab nodes
	TabPrefix  string
	Serializer string

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration for values that cannot work
func (c *StoreConfig) Validate() error {
	if c.Engine != db.ImplMemory && c.DataDir == "" {
		return fmt.Errorf("the %s engine needs a data directory", c.Engine)
	}
	if c.CacheSizeMB < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSizeMB)
	}
	if c.TabPrefix == "" {
		return fmt.Errorf("the tab node prefix must not be empty")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *StoreConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Engine", string(c.Engine))
	addField("Sync Writes", fmt.Sprintf("%t", c.SyncWrites))
	if c.Engine == db.ImplPebble {
		addField("Cache Size", fmt.Sprintf("%d MB", c.CacheSizeMB))
	}

	// Tab nodes
	addSection("Tab Nodes")
	addField("Prefix", c.TabPrefix)
	addField("Serializer", c.Serializer)

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
