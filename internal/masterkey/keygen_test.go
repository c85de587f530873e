package masterkey

import (
	"errors"
	"strings"
	"testing"
)

func TestNewKeyFormat(t *testing.T) {
	gen := NewKeyGenerator()
	key, err := gen.NewKey(Registry{})
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if !strings.HasPrefix(key, "MK-") {
		t.Fatalf("expected MK- prefix, got %s", key)
	}
	if len(key) != len("MK-")+8 {
		t.Fatalf("expected 8-char suffix, got %s", key)
	}
	if suffix := strings.TrimPrefix(key, "MK-"); suffix != strings.ToUpper(suffix) {
		t.Fatalf("expected uppercase suffix, got %s", key)
	}
}

func TestNewKeySkipsExistingKeys(t *testing.T) {
	ids := []string{"aaaaaaaa-0000", "bbbbbbbb-0000"}
	gen := NewKeyGenerator(WithIDSource(func() string {
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}))

	registry := Registry{"MK-AAAAAAAA": {"taken"}}
	key, err := gen.NewKey(registry)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if key != "MK-BBBBBBBB" {
		t.Fatalf("expected collision to be skipped, got %s", key)
	}
}

func TestNewKeyExhaustion(t *testing.T) {
	gen := NewKeyGenerator(WithIDSource(func() string { return "aaaaaaaa-0000" }))
	registry := Registry{"MK-AAAAAAAA": {"taken"}}

	_, err := gen.NewKey(registry)
	if !errors.Is(err, ErrKeySpaceExhausted) {
		t.Fatalf("expected ErrKeySpaceExhausted, got %v", err)
	}
}
