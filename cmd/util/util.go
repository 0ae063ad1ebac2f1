package util

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/syncstore/lib/codec"
	"github.com/ValentinKolb/syncstore/lib/common"
	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/ValentinKolb/syncstore/lib/db/engines/badgerdb"
	"github.com/ValentinKolb/syncstore/lib/db/engines/memdb"
	"github.com/ValentinKolb/syncstore/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/ValentinKolb/syncstore/lib/tabstore"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// memoryPath is the engine path used by the memory engine when no data dir is set
	memoryPath = "memory"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the flags needed to open a store to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, "data", WrapString("Directory of the store (ignored by the memory engine)"))

	key = "engine"
	cmd.PersistentFlags().String(key, string(db.ImplPebble), WrapString(fmt.Sprintf("Storage engine to use (%s)", strings.Join(engineNames(), ", "))))

	key = "sync-writes"
	cmd.PersistentFlags().Bool(key, true, WrapString("Wait for the engine log to be flushed on every write"))

	key = "cache-size"
	cmd.PersistentFlags().Int64(key, 8, WrapString("Size of the pebble block cache (in MB)"))

	key = "tab-prefix"
	cmd.PersistentFlags().String(key, tabstore.DefaultPrefix, WrapString("Key prefix of the tab node records"))

	key = "serializer"
	cmd.PersistentFlags().String(key, "binary", WrapString(fmt.Sprintf("Serializer of the tab node records (%s)", strings.Join(codec.Names(), ", "))))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))
}

func engineNames() []string {
	names := make([]string, 0)
	for _, impl := range db.Implementations() {
		names = append(names, string(impl))
	}
	return names
}

// InitConfig initializes configuration from .env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("syncstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() *common.StoreConfig {
	return &common.StoreConfig{
		DataDir:     viper.GetString("data-dir"),
		Engine:      db.Implementation(viper.GetString("engine")),
		SyncWrites:  viper.GetBool("sync-writes"),
		CacheSizeMB: viper.GetInt64("cache-size"),
		TabPrefix:   viper.GetString("tab-prefix"),
		Serializer:  viper.GetString("serializer"),
		LogLevel:    viper.GetString("log-level"),
	}
}

// GetProvider creates the engine provider for the configuration
func GetProvider(conf *common.StoreConfig) (db.Provider, error) {
	switch conf.Engine {
	case db.ImplPebble:
		opts := pebbledb.DefaultOptions()
		opts.CacheSizeBytes = conf.CacheSizeMB * 1024 * 1024
		return pebbledb.NewProvider(opts), nil
	case db.ImplBadger:
		return badgerdb.NewProvider(&badgerdb.DBOptions{SyncWrites: conf.SyncWrites}), nil
	case db.ImplMemory:
		return memdb.NewProvider(), nil
	default:
		return db.GetProvider(conf.Engine)
	}
}

// enginePath returns the path the engine is opened at
func enginePath(conf *common.StoreConfig) string {
	if conf.Engine == db.ImplMemory && conf.DataDir == "" {
		return memoryPath
	}
	return filepath.Clean(conf.DataDir)
}

// NewBackend binds the flags of cmd, validates the configuration and initializes
// the loggers. It returns an uninitialized backend and the path to initialize it with.
func NewBackend(cmd *cobra.Command) (*store.Backend, string, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, "", err
	}

	conf := GetStoreConfig()
	if err := conf.Validate(); err != nil {
		return nil, "", err
	}
	if err := common.InitLoggers(*conf); err != nil {
		return nil, "", err
	}

	log.Debugf("store configuration:%s", conf)

	provider, err := GetProvider(conf)
	if err != nil {
		return nil, "", err
	}
	return store.NewBackend(provider, &store.Options{SyncWrites: conf.SyncWrites}), enginePath(conf), nil
}

// OpenBackend returns an initialized backend of the configured store
func OpenBackend(cmd *cobra.Command) (*store.Backend, error) {
	backend, path, err := NewBackend(cmd)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(path); err != nil {
		return nil, err
	}
	if backend.Outcome() == store.InitRecoveredAfterCorruption {
		log.Warningf("the store at %s was corrupted and has been recreated", path)
	}
	return backend, nil
}

// GetSerializer creates the tab node record serializer based on configuration
func GetSerializer() (codec.IRecordSerializer, error) {
	return codec.ByName(viper.GetString("serializer"))
}

// GetTracker creates a tab node tracker on top of backend based on configuration
func GetTracker(backend *store.Backend) (*tabstore.Tracker, error) {
	serializer, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	tracker := tabstore.NewTracker(backend, &tabstore.Options{
		Prefix:     viper.GetString("tab-prefix"),
		Serializer: serializer,
	})
	if err := tracker.Load(); err != nil {
		return nil, err
	}
	return tracker, nil
}
