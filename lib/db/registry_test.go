package db

import "testing"

type fakeProvider struct {
	name Implementation
}

func (p fakeProvider) Name() Implementation          { return p.name }
func (p fakeProvider) Open(string) (KVEngine, error) { return nil, ErrNotSupported }
func (p fakeProvider) Destroy(string) error          { return nil }

func TestRegistry(t *testing.T) {
	Register(fakeProvider{name: "fake-b"})
	Register(fakeProvider{name: "fake-a"})

	p, err := GetProvider("fake-a")
	if err != nil {
		t.Fatalf("Expected provider, got %v", err)
	}
	if p.Name() != "fake-a" {
		t.Errorf("Expected fake-a, got %s", p.Name())
	}

	if _, err := GetProvider("unknown"); err == nil {
		t.Errorf("Expected an error for an unknown engine")
	}

	names := Implementations()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Expected sorted implementations, got %v", names)
		}
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	Register(fakeProvider{name: "fake-twice"})

	defer func() {
		if recover() == nil {
			t.Errorf("Expected a panic when registering a name twice")
		}
	}()
	Register(fakeProvider{name: "fake-twice"})
}
