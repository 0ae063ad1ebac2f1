package badgerdb

import (
	"testing"

	"github.com/ValentinKolb/syncstore/lib/db"
	dbtesting "github.com/ValentinKolb/syncstore/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "BadgerDB", func() db.Provider {
		return NewProvider(nil)
	})
	dbtesting.RunEngineTests(t, "BadgerDB(in-memory)", func() db.Provider {
		return NewProvider(&DBOptions{InMemory: true})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "BadgerDB", func() db.Provider {
		return NewProvider(&DBOptions{InMemory: true})
	})
}
