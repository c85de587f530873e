package masterkey

import (
	"strings"

	"github.com/google/uuid"
)

const (
	keyPrefix      = "MK-"
	maxKeyAttempts = 32
)

// KeySource mints master key identifiers guaranteed to be absent from the
// supplied registry snapshot.
type KeySource interface {
	NewKey(registry Registry) (string, error)
}

// KeyGenerator produces MK-XXXXXXXX identifiers from random UUIDs. The
// construction is independent of wall-clock time and of the registry's
// history, which keeps assignments replayable.
type KeyGenerator struct {
	newID func() string
}

// KeyOption customizes a KeyGenerator.
type KeyOption func(*KeyGenerator)

// WithIDSource overrides the random identifier source (primarily for tests).
func WithIDSource(source func() string) KeyOption {
	return func(g *KeyGenerator) {
		if source != nil {
			g.newID = source
		}
	}
}

// NewKeyGenerator constructs the default UUID-backed generator.
func NewKeyGenerator(opts ...KeyOption) *KeyGenerator {
	g := &KeyGenerator{newID: uuid.NewString}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewKey returns an identifier not present as a key in registry. It fails
// with ErrKeySpaceExhausted after a bounded number of attempts; under a
// healthy identifier space this never happens.
func (g *KeyGenerator) NewKey(registry Registry) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		id := strings.ReplaceAll(g.newID(), "-", "")
		if len(id) < 8 {
			continue
		}
		key := keyPrefix + strings.ToUpper(id[:8])
		if _, exists := registry[key]; !exists {
			return key, nil
		}
	}
	return "", ErrKeySpaceExhausted
}
