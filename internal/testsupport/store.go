package testsupport

import (
	"testing"

	"medkey/internal/config"
	"medkey/internal/registrystore"
)

// MustOpenStore opens a registry store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registrystore.Store {
	t.Helper()

	store, err := registrystore.Open(cfg)
	if err != nil {
		t.Fatalf("registrystore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
