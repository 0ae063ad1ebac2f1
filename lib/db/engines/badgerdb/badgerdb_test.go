package badgerdb

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4/y"
)

func TestApplyOversizedBatch(t *testing.T) {
	provider := NewProvider(&DBOptions{InMemory: true, MemTableSize: 16 << 20})
	engine, err := provider.Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer engine.Close()

	// 4MB of values exceed the 2.4MB a single transaction may hold
	value := bytes.Repeat([]byte("v"), 1024)
	batch := db.NewBatch()
	for i := 0; i < 4000; i++ {
		batch.Put([]byte(fmt.Sprintf("key-%05d", i)), value)
	}
	err = engine.Apply(batch, true)
	if !errors.Is(err, db.ErrNotSupported) {
		t.Fatalf("Expected ErrNotSupported for an oversized batch, got %v", err)
	}

	// nothing of the batch is visible
	if _, err := engine.Get([]byte("key-00000")); !db.IsNotFound(err) {
		t.Errorf("Expected key-00000 to be absent, got %v", err)
	}

	// a smaller batch still fits
	batch = db.NewBatch()
	for i := 0; i < 100; i++ {
		batch.Put([]byte(fmt.Sprintf("key-%05d", i)), value)
	}
	if err := engine.Apply(batch, true); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func TestClassifyCorruption(t *testing.T) {
	cases := []struct {
		err        error
		corruption bool
	}{
		{errors.New("manifest has bad magic"), true},
		{errors.Wrap(errors.New("manifest has checksum mismatch"), "open"), true},
		{errors.Wrap(y.ErrChecksumMismatch, "table"), true},
		{errors.New("permission denied"), false},
	}
	for _, c := range cases {
		if got := db.IsCorruption(classify(c.err)); got != c.corruption {
			t.Errorf("classify(%q): corruption = %v, want %v", c.err, got, c.corruption)
		}
	}
}
