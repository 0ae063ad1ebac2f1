package common

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/lni/dragonboat/v4/logger"
)

func validConfig() StoreConfig {
	return StoreConfig{
		DataDir:     "/var/lib/syncstore",
		Engine:      db.ImplPebble,
		CacheSizeMB: 8,
		TabPrefix:   "tab_node-",
		Serializer:  "binary",
		LogLevel:    "info",
	}
}

func TestValidate(t *testing.T) {
	conf := validConfig()
	if err := conf.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	tests := map[string]func(c *StoreConfig){
		"missing data dir": func(c *StoreConfig) { c.DataDir = "" },
		"negative cache":   func(c *StoreConfig) { c.CacheSizeMB = -1 },
		"empty prefix":     func(c *StoreConfig) { c.TabPrefix = "" },
		"bad log level":    func(c *StoreConfig) { c.LogLevel = "loud" },
	}
	for name, mutate := range tests {
		conf := validConfig()
		mutate(&conf)
		if err := conf.Validate(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	conf = validConfig()
	conf.Engine = db.ImplMemory
	conf.DataDir = ""
	if err := conf.Validate(); err != nil {
		t.Errorf("memory engine without data dir should be valid, got %v", err)
	}
}

func TestString(t *testing.T) {
	conf := validConfig()
	out := conf.String()
	for _, want := range []string{"STORAGE", "TAB NODES", "LOGGING", "/var/lib/syncstore", "8 MB", "tab_node-"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}

	conf.Engine = db.ImplBadger
	if strings.Contains(conf.String(), "Cache Size") {
		t.Errorf("Cache size should only be shown for pebble")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
}
