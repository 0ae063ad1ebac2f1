package memdb

import (
	"sync"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/errors"
)

func init() {
	db.Register(NewProvider())
}

// Provider creates in-memory engines keyed by path.
// Each Provider is its own namespace; data written through an engine is
// visible to the next engine opened on the same path of the same Provider.
//
// The fault injection methods make the provider usable as a test double for
// the failure paths of the store (corruption on open, write and iteration errors).
type Provider struct {
	mu          sync.Mutex
	datasets    map[string]*dataset
	destroyErrs map[string]error
}

// NewProvider returns an empty provider
func NewProvider() *Provider {
	return &Provider{
		datasets:    make(map[string]*dataset),
		destroyErrs: make(map[string]error),
	}
}

// NewMemDB is a shortcut that opens a fresh, private in-memory engine.
func NewMemDB() db.KVEngine {
	e, _ := NewProvider().Open("")
	return e
}

func (p *Provider) dataset(path string) *dataset {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.datasets[path]
	if !ok {
		d = newDataset()
		p.datasets[path] = d
	}
	return d
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.Provider)
// --------------------------------------------------------------------------

func (p *Provider) Name() db.Implementation {
	return db.ImplMemory
}

func (p *Provider) Open(path string) (db.KVEngine, error) {
	d := p.dataset(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.corrupt {
		return nil, errors.Mark(errors.Newf("memdb: dataset %q is corrupted", path), db.ErrCorruption)
	}
	if d.openErr != nil {
		err := d.openErr
		d.openErr = nil
		return nil, err
	}
	if d.opened {
		return nil, errors.Mark(errors.Newf("memdb: dataset %q is already open", path), db.ErrIO)
	}
	d.opened = true
	return &memImpl{path: path, data: d}, nil
}

func (p *Provider) Destroy(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.destroyErrs[path]; ok {
		delete(p.destroyErrs, path)
		return err
	}
	if d, ok := p.datasets[path]; ok && d.opened {
		return errors.Mark(errors.Newf("memdb: cannot destroy open dataset %q", path), db.ErrIO)
	}
	delete(p.datasets, path)
	return nil
}

// --------------------------------------------------------------------------
// Fault injection
// --------------------------------------------------------------------------

// Corrupt marks the dataset at path as corrupted. Every Open fails with an
// error marked db.ErrCorruption until the path is destroyed.
func (p *Provider) Corrupt(path string) {
	d := p.dataset(path)
	d.mu.Lock()
	d.corrupt = true
	d.mu.Unlock()
}

// FailNextOpen makes the next Open of path return err.
func (p *Provider) FailNextOpen(path string, err error) {
	d := p.dataset(path)
	d.mu.Lock()
	d.openErr = err
	d.mu.Unlock()
}

// FailApply makes every Apply on path fail with err (nil clears it).
func (p *Provider) FailApply(path string, err error) {
	d := p.dataset(path)
	d.mu.Lock()
	d.applyErr = err
	d.mu.Unlock()
}

// FailGet makes every Get on path fail with err (nil clears it).
func (p *Provider) FailGet(path string, err error) {
	d := p.dataset(path)
	d.mu.Lock()
	d.getErr = err
	d.mu.Unlock()
}

// FailIteration makes iterators on path fail with err when advancing (nil clears it).
func (p *Provider) FailIteration(path string, err error) {
	d := p.dataset(path)
	d.mu.Lock()
	d.iterErr = err
	d.mu.Unlock()
}

// FailNextDestroy makes the next Destroy of path return err.
func (p *Provider) FailNextDestroy(path string, err error) {
	p.mu.Lock()
	p.destroyErrs[path] = err
	p.mu.Unlock()
}
