package testing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/syncstore/lib/db"
)

// ProviderFactory is a function that creates a new provider of a KVEngine implementation
type ProviderFactory func() db.Provider

// RunEngineTests runs a comprehensive test suite for a KVEngine implementation.
// Every subtest opens its own engine in a fresh temporary directory.
func RunEngineTests(t *testing.T, name string, factory ProviderFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, openEngine(t, factory()))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, openEngine(t, factory()))
		})

		t.Run("NotFound", func(t *testing.T) {
			testNotFound(t, openEngine(t, factory()))
		})

		t.Run("BatchOrder", func(t *testing.T) {
			testBatchOrder(t, openEngine(t, factory()))
		})

		t.Run("IterationOrder", func(t *testing.T) {
			testIterationOrder(t, openEngine(t, factory()))
		})

		t.Run("IteratorSnapshot", func(t *testing.T) {
			testIteratorSnapshot(t, openEngine(t, factory()))
		})

		t.Run("BinaryKeys", func(t *testing.T) {
			testBinaryKeys(t, openEngine(t, factory()))
		})

		t.Run("Reopen", func(t *testing.T) {
			testReopen(t, factory())
		})

		t.Run("Destroy", func(t *testing.T) {
			testDestroy(t, factory())
		})

		t.Run("CorruptionDetection", func(t *testing.T) {
			testCorruptionDetection(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, openEngine(t, factory()))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// openEngine opens an engine in a temporary directory and closes it when the test ends
func openEngine(t testing.TB, provider db.Provider) db.KVEngine {
	path := filepath.Join(t.TempDir(), "db")
	engine, err := provider.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s engine: %v", provider.Name(), err)
	}
	t.Cleanup(func() {
		_ = engine.Close()
	})
	return engine
}

// CorruptEngineFiles overwrites the files an engine at path reads first when it
// is opened (the CURRENT pointer and the MANIFEST) with garbage
func CorruptEngineFiles(t testing.TB, path string) {
	t.Helper()
	var files []string
	for _, pattern := range []string{"CURRENT", "MANIFEST*"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			t.Fatalf("Glob failed: %v", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		t.Fatalf("No manifest found in %s", path)
	}

	// no trailing newline, so the CURRENT pointer is malformed as well
	garbage := bytes.Repeat([]byte{0xa5}, 512)
	for _, file := range files {
		if err := os.WriteFile(file, garbage, 0o644); err != nil {
			t.Fatalf("Failed to corrupt %s: %v", file, err)
		}
	}
}

// Checks if the engine supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, engine db.KVEngine, feature db.Feature) {
	if !engine.SupportsFeature(feature) {
		t.Skip()
	}
}

func put(t testing.TB, engine db.KVEngine, kv ...string) {
	if len(kv)%2 != 0 {
		t.Fatalf("put needs key/value pairs")
	}
	batch := db.NewBatch()
	for i := 0; i < len(kv); i += 2 {
		batch.Put([]byte(kv[i]), []byte(kv[i+1]))
	}
	if err := engine.Apply(batch, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

// scan returns all keys >= start in iteration order
func scan(t testing.TB, engine db.KVEngine, start string) []string {
	it, err := engine.NewIter()
	if err != nil {
		t.Fatalf("NewIter failed: %v", err)
	}
	defer it.Close()

	var keys []string
	for valid := it.SeekGE([]byte(start)); valid; valid = it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if err := it.Error(); err != nil {
		t.Fatalf("Iteration failed: %v", err)
	}
	return keys
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, engine db.KVEngine) {
	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	put(t, engine, string(testKey), string(testValue1))

	result, err := engine.Get(testKey)
	if err != nil {
		t.Fatalf("Expected key %s to exist after Put: %v", testKey, err)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	put(t, engine, string(testKey), string(testValue2))

	result, err = engine.Get(testKey)
	if err != nil {
		t.Fatalf("Expected key %s to exist after overwrite: %v", testKey, err)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	result[0] = 'X'
	original, _ := engine.Get(testKey)
	if !bytes.Equal(original, testValue2) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	put(t, engine, "empty-value", "")
	result, err = engine.Get([]byte("empty-value"))
	if err != nil {
		t.Errorf("Expected empty value to be stored: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected empty value, got %q", result)
	}
}

func testDelete(t *testing.T, engine db.KVEngine) {
	put(t, engine, "delete-a", "1", "delete-b", "2")

	batch := db.NewBatch()
	batch.Delete([]byte("delete-a"))
	batch.Delete([]byte("nonexistent-key"))
	if err := engine.Apply(batch, true); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := engine.Get([]byte("delete-a")); !db.IsNotFound(err) {
		t.Errorf("Expected delete-a to be gone, got err=%v", err)
	}
	if _, err := engine.Get([]byte("delete-b")); err != nil {
		t.Errorf("Expected delete-b to survive: %v", err)
	}
}

func testNotFound(t *testing.T, engine db.KVEngine) {
	_, err := engine.Get([]byte("nonexistent-key"))
	if err == nil {
		t.Fatalf("Expected an error for a missing key")
	}
	if !db.IsNotFound(err) {
		t.Errorf("Expected error marked as not found, got %v", err)
	}
	if db.IsCorruption(err) {
		t.Errorf("A missing key must not be reported as corruption")
	}
}

func testBatchOrder(t *testing.T, engine db.KVEngine) {
	batch := db.NewBatch()
	batch.Put([]byte("k"), []byte("first"))
	batch.Put([]byte("k"), []byte("second"))
	batch.Put([]byte("gone"), []byte("x"))
	batch.Delete([]byte("gone"))
	if err := engine.Apply(batch, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	result, err := engine.Get([]byte("k"))
	if err != nil || string(result) != "second" {
		t.Errorf("Expected the last put to win, got %q (err=%v)", result, err)
	}
	if _, err := engine.Get([]byte("gone")); !db.IsNotFound(err) {
		t.Errorf("Expected a later delete to remove an earlier put in the same batch")
	}

	if err := engine.Apply(db.NewBatch(), false); err != nil {
		t.Errorf("Applying an empty batch should succeed: %v", err)
	}
}

func testIterationOrder(t *testing.T, engine db.KVEngine) {
	put(t, engine,
		"b/2", "v", "a/1", "v", "b/10", "v", "b/1", "v", "c", "v", "b", "v",
	)

	all := scan(t, engine, "")
	expected := []string{"a/1", "b", "b/1", "b/10", "b/2", "c"}
	if !equalKeys(all, expected) {
		t.Errorf("Expected keys in byte order %v, got %v", expected, all)
	}

	fromB := scan(t, engine, "b/")
	expected = []string{"b/1", "b/10", "b/2", "c"}
	if !equalKeys(fromB, expected) {
		t.Errorf("Expected SeekGE(b/) to yield %v, got %v", expected, fromB)
	}

	if rest := scan(t, engine, "d"); len(rest) != 0 {
		t.Errorf("Expected no keys after d, got %v", rest)
	}

	it, err := engine.NewIter()
	if err != nil {
		t.Fatalf("NewIter failed: %v", err)
	}
	defer it.Close()
	if !it.SeekGE([]byte("b/1")) {
		t.Fatalf("Expected SeekGE(b/1) to be valid")
	}
	if string(it.Value()) != "v" {
		t.Errorf("Expected value v, got %q", it.Value())
	}
}

func testIteratorSnapshot(t *testing.T, engine db.KVEngine) {
	requireFeature(t, engine, db.FeatureSnapshotIter)

	put(t, engine, "snap-1", "a", "snap-2", "b")

	it, err := engine.NewIter()
	if err != nil {
		t.Fatalf("NewIter failed: %v", err)
	}
	defer it.Close()

	put(t, engine, "snap-3", "c")

	count := 0
	for valid := it.SeekGE([]byte("snap-")); valid; valid = it.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("Expected the iterator to see 2 entries from its snapshot, got %d", count)
	}
}

func testBinaryKeys(t *testing.T, engine db.KVEngine) {
	keys := [][]byte{
		{0x00},
		{0x00, 0x00},
		{0x01, 0xff},
		{0xff},
		{0xff, 0x00},
	}
	batch := db.NewBatch()
	for i := len(keys) - 1; i >= 0; i-- {
		batch.Put(keys[i], []byte{byte(i)})
	}
	if err := engine.Apply(batch, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	it, err := engine.NewIter()
	if err != nil {
		t.Fatalf("NewIter failed: %v", err)
	}
	defer it.Close()

	i := 0
	for valid := it.SeekGE(nil); valid; valid = it.Next() {
		if i >= len(keys) {
			t.Fatalf("Iterator returned more keys than written")
		}
		if !bytes.Equal(it.Key(), keys[i]) {
			t.Errorf("Expected key %x at position %d, got %x", keys[i], i, it.Key())
		}
		i++
	}
	if i != len(keys) {
		t.Errorf("Expected %d keys, got %d", len(keys), i)
	}
}

func testReopen(t *testing.T, provider db.Provider) {
	path := filepath.Join(t.TempDir(), "db")

	engine, err := provider.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	requireFeatureAndClose(t, engine, db.FeaturePersistent)

	numEntries := 100
	batch := db.NewBatch()
	for i := 0; i < numEntries; i++ {
		batch.Put([]byte(fmt.Sprintf("key-%03d", i)), []byte(fmt.Sprintf("value-%d", i)))
	}
	if err := engine.Apply(batch, true); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	engine, err = provider.Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer engine.Close()

	for i := 0; i < numEntries; i++ {
		value, err := engine.Get([]byte(fmt.Sprintf("key-%03d", i)))
		if err != nil {
			t.Fatalf("Expected key-%03d after reopen: %v", i, err)
		}
		if string(value) != fmt.Sprintf("value-%d", i) {
			t.Errorf("Expected value-%d, got %s", i, value)
		}
	}
}

func testCorruptionDetection(t *testing.T, provider db.Provider) {
	path := filepath.Join(t.TempDir(), "db")

	engine, err := provider.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	requireFeatureAndClose(t, engine, db.FeaturePersistent)
	requireFeatureAndClose(t, engine, db.FeatureCorruptionDetection)

	batch := db.NewBatch()
	batch.Put([]byte("key"), []byte("value"))
	if err := engine.Apply(batch, true); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	CorruptEngineFiles(t, path)

	engine, err = provider.Open(path)
	if err == nil {
		_ = engine.Close()
		t.Fatalf("Expected Open of a corrupted %s engine to fail", provider.Name())
	}
	if !db.IsCorruption(err) {
		t.Errorf("Expected a corruption error, got %v", err)
	}
}

func testDestroy(t *testing.T, provider db.Provider) {
	path := filepath.Join(t.TempDir(), "db")

	engine, err := provider.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	requireFeatureAndClose(t, engine, db.FeaturePersistent)

	put(t, engine, "destroy-me", "v")
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := provider.Destroy(path); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	engine, err = provider.Open(path)
	if err != nil {
		t.Fatalf("Open after destroy failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Get([]byte("destroy-me")); !db.IsNotFound(err) {
		t.Errorf("Expected an empty engine after Destroy, got err=%v", err)
	}
}

func testInfo(t *testing.T, engine db.KVEngine) {
	put(t, engine, "info", "value")

	info := engine.GetInfo()
	if info.DbType == "" {
		t.Errorf("Expected the engine to report its implementation")
	}
	for _, f := range info.SupportedFeatures {
		if !engine.SupportsFeature(f) {
			t.Errorf("GetInfo lists %s but SupportsFeature denies it", f)
		}
	}
}

// requireFeatureAndClose skips the test if the feature is missing, closing the engine first
func requireFeatureAndClose(t testing.TB, engine db.KVEngine, feature db.Feature) {
	if !engine.SupportsFeature(feature) {
		_ = engine.Close()
		t.Skip()
	}
}
