package pebbledb

import (
	"testing"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/ValentinKolb/syncstore/lib/db/engines/memdb"
	"github.com/prometheus/client_golang/prometheus"
)

func TestCollector(t *testing.T) {
	engine, err := NewProvider(nil).Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	defer engine.Close()

	batch := db.NewBatch()
	batch.Put([]byte("key"), []byte("value"))
	if err := engine.Apply(batch, true); err != nil {
		t.Fatalf("failed to apply batch: %v", err)
	}

	collector, ok := NewCollector(engine)
	if !ok {
		t.Fatalf("expected a collector for a pebble engine")
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("failed to register collector: %v", err)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(families) != 10 {
		t.Errorf("expected 10 metric families, got %d", len(families))
	}

	for _, mf := range families {
		if mf.GetName() != "syncstore_pebble_wal_bytes_in_total" {
			continue
		}
		if v := mf.GetMetric()[0].GetCounter().GetValue(); v <= 0 {
			t.Errorf("expected bytes written to the WAL, got %v", v)
		}
	}
}

func TestCollectorRejectsOtherEngines(t *testing.T) {
	if _, ok := NewCollector(memdb.NewMemDB()); ok {
		t.Errorf("expected no collector for a memory engine")
	}
}
