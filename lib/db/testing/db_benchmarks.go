package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/syncstore/lib/db"
)

// RunEngineBenchmarks runs all benchmarks for a KVEngine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory ProviderFactory) {

	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, openEngine(b, factory()))
	})

	b.Run("PutBatch", func(b *testing.B) {
		benchmarkPutBatch(b, openEngine(b, factory()))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, openEngine(b, factory()))
	})

	b.Run("PrefixScan", func(b *testing.B) {
		benchmarkPrefixScan(b, openEngine(b, factory()))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for single-op batches
func benchmarkPut(b *testing.B, engine db.KVEngine) {
	value := []byte("benchmark-value")
	batch := db.NewBatch()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch.Reset()
		batch.Put([]byte(fmt.Sprintf("key-%d", i)), value)
		if err := engine.Apply(batch, false); err != nil {
			b.Fatalf("Apply failed: %v", err)
		}
	}
}

// Benchmark for batches of 100 puts
func benchmarkPutBatch(b *testing.B, engine db.KVEngine) {
	value := []byte("benchmark-value")
	batch := db.NewBatch()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch.Reset()
		for j := 0; j < 100; j++ {
			batch.Put([]byte(fmt.Sprintf("key-%d-%d", i, j)), value)
		}
		if err := engine.Apply(batch, false); err != nil {
			b.Fatalf("Apply failed: %v", err)
		}
	}
}

// Benchmark for point lookups of existing keys
func benchmarkGet(b *testing.B, engine db.KVEngine) {
	numKeys := 10000
	batch := db.NewBatch()
	for i := 0; i < numKeys; i++ {
		batch.Put([]byte(fmt.Sprintf("key-%d", i)), []byte("value"))
	}
	if err := engine.Apply(batch, false); err != nil {
		b.Fatalf("Apply failed: %v", err)
	}

	rnd := rand.New(rand.NewSource(42))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Get([]byte(fmt.Sprintf("key-%d", rnd.Intn(numKeys)))); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}

// Benchmark for scanning one prefix out of ten
func benchmarkPrefixScan(b *testing.B, engine db.KVEngine) {
	batch := db.NewBatch()
	for p := 0; p < 10; p++ {
		for i := 0; i < 1000; i++ {
			batch.Put([]byte(fmt.Sprintf("prefix-%d/%04d", p, i)), []byte("value"))
		}
	}
	if err := engine.Apply(batch, false); err != nil {
		b.Fatalf("Apply failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prefix := []byte(fmt.Sprintf("prefix-%d/", i%10))
		it, err := engine.NewIter()
		if err != nil {
			b.Fatalf("NewIter failed: %v", err)
		}
		count := 0
		for valid := it.SeekGE(prefix); valid && len(it.Key()) >= len(prefix) && string(it.Key()[:len(prefix)]) == string(prefix); valid = it.Next() {
			count++
		}
		_ = it.Close()
		if count != 1000 {
			b.Fatalf("Expected 1000 keys, got %d", count)
		}
	}
}
