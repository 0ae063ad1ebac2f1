package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/syncstore/cmd/util"
	"github.com/ValentinKolb/syncstore/lib/common"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the configured store",
		Long:    "Runs write, read and prefix benchmarks against the store. All test records live under the prefix __perf/ and are removed afterwards.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf/"
	perfLargeValueSizeKB = 100
	perfBatchSize        = 100
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

// benchmark names in the order they are run
var perfTests = []string{"put", "put-large", "put-batch", "read", "read-missing", "read-all", "delete", "drop"}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString(fmt.Sprintf("Benchmarks to skip (comma separated - any of %s)", strings.Join(perfTests, ","))))
	key = "batch-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many operations the put-batch test writes per batch"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different records to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfBatchSize = viper.GetInt("batch-size")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 || perfBatchSize <= 0 {
		return fmt.Errorf("keys and batch-size must be positive")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for syncstore")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetStoreConfig().String())
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	bench := func(test string, fn func(b *testing.B)) {
		if shouldSkip(test) {
			results[test] = testing.BenchmarkResult{}
			printResult(test, results[test])
			return
		}
		results[test] = testing.Benchmark(fn)
		printResult(test, results[test])
	}

	bench("put", func(b *testing.B) {
		getKey, prefix := getKeys("put")
		b.Cleanup(func() { dropPrefix("put", prefix) })

		value := []byte("test")
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := backend.WriteModifications(store.NewWriteBatch().Put(getKey(i), value)); err != nil {
				log.Printf("(put) - error writing record: %v\n", err)
			}
		}
	})

	bench("put-large", func(b *testing.B) {
		getKey, prefix := getKeys("put-large")
		b.Cleanup(func() { dropPrefix("put-large", prefix) })

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)
		b.SetBytes(int64(len(largeValue)))

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := backend.WriteModifications(store.NewWriteBatch().Put(getKey(i), largeValue)); err != nil {
				log.Printf("(put-large) - error writing record: %v\n", err)
			}
		}
	})

	bench("put-batch", func(b *testing.B) {
		getKey, prefix := getKeys("put-batch")
		b.Cleanup(func() { dropPrefix("put-batch", prefix) })

		value := []byte("test")
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			batch := store.NewWriteBatch()
			for j := 0; j < perfBatchSize; j++ {
				batch.Put(getKey(i*perfBatchSize+j), value)
			}
			if err := backend.WriteModifications(batch); err != nil {
				log.Printf("(put-batch) - error writing batch: %v\n", err)
			}
		}
	})

	bench("read", func(b *testing.B) {
		getKey, prefix := getKeys("read")
		fill("read", getKey)
		b.Cleanup(func() { dropPrefix("read", prefix) })

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			id := strings.TrimPrefix(getKey(i), prefix)
			if _, _, err := backend.ReadRecordsWithPrefix(prefix, []string{id}); err != nil {
				log.Printf("(read) - error reading record: %v\n", err)
			}
		}
	})

	bench("read-missing", func(b *testing.B) {
		_, prefix := getKeys("read-missing")

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			id := strconv.Itoa(i % perfKeySpread)
			if _, _, err := backend.ReadRecordsWithPrefix(prefix, []string{id}); err != nil {
				log.Printf("(read-missing) - error reading record: %v\n", err)
			}
		}
	})

	bench("read-all", func(b *testing.B) {
		getKey, prefix := getKeys("read-all")
		fill("read-all", getKey)
		b.Cleanup(func() { dropPrefix("read-all", prefix) })

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := backend.ReadAllRecordsWithPrefix(prefix); err != nil {
				log.Printf("(read-all) - error reading records: %v\n", err)
			}
		}
	})

	bench("delete", func(b *testing.B) {
		getKey, prefix := getKeys("delete")
		fill("delete", getKey)
		b.Cleanup(func() { dropPrefix("delete", prefix) })

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := backend.WriteModifications(store.NewWriteBatch().Delete(getKey(i))); err != nil {
				log.Printf("(delete) - error deleting record: %v\n", err)
			}
		}
	})

	bench("drop", func(b *testing.B) {
		getKey, prefix := getKeys("drop")

		for i := 0; i < b.N; i++ {
			b.StopTimer()
			fill("drop", getKey)
			b.StartTimer()
			if err := backend.DeleteDataAndMetadataForPrefix(prefix); err != nil {
				log.Printf("(drop) - error dropping prefix: %v\n", err)
			}
		}
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetStoreConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKeys returns the record prefix of a test and a function returning
// the full key of the i-th record (with wraparound)
func getKeys(test string) (func(int) string, string) {
	prefix := perfKeyPrefix + test + "/"
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = prefix + strconv.Itoa(i)
	}

	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}
	return getKey, prefix
}

// fill writes all records of a test in one batch
func fill(test string, getKey func(int) string) {
	batch := store.NewWriteBatch()
	for i := 0; i < perfKeySpread; i++ {
		batch.Put(getKey(i), []byte("test"))
	}
	if err := backend.WriteModifications(batch); err != nil {
		log.Printf("(%s) - error writing records: %v\n", test, err)
	}
}

func dropPrefix(test, prefix string) {
	if err := backend.DeleteDataAndMetadataForPrefix(prefix); err != nil {
		log.Printf("(%s) - error deleting records: %v\n", test, err)
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.StoreConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Engine", "SyncWrites", "CacheSizeMB",
		"BatchSize", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range perfTests {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			string(config.Engine),
			strconv.FormatBool(config.SyncWrites),
			strconv.FormatInt(config.CacheSizeMB, 10),
			strconv.Itoa(perfBatchSize),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
