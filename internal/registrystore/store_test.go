package registrystore

import (
	"context"
	"path/filepath"
	"testing"

	"medkey/internal/config"
	"medkey/internal/masterkey"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	return cfg
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestSaveDecisionAndLoadRegistry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	decision := masterkey.Decision{MasterKey: "MK-001", Score: 0.91, HasScore: true, Reused: false}
	if err := store.SaveDecision(ctx, "Hemograma Completo", decision); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}
	reuse := masterkey.Decision{MasterKey: "MK-001", Score: 0.88, HasScore: true, Reused: true}
	if err := store.SaveDecision(ctx, "Hemograma Total - Sangue", reuse); err != nil {
		t.Fatalf("SaveDecision reuse: %v", err)
	}

	registry, err := store.LoadRegistry(ctx)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	members := registry["MK-001"]
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}
	if members[0] != "Hemograma Completo" {
		t.Fatalf("expected insertion order preserved, got %v", members)
	}
}

func TestSaveDecisionRejectsDuplicateRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := masterkey.Decision{MasterKey: "MK-001", Score: 0.9, HasScore: true}
	if err := store.SaveDecision(ctx, "Glicose", first); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}
	second := masterkey.Decision{MasterKey: "MK-002", Score: 0.9, HasScore: true}
	if err := store.SaveDecision(ctx, "Glicose", second); err == nil {
		t.Fatal("expected duplicate record name to be rejected")
	}

	// The failed transaction must not leave partial state behind.
	stats, err := store.CollectStats(ctx)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.Members != 1 || stats.Assignments != 1 {
		t.Fatalf("expected single member and assignment, got %+v", stats)
	}
}

func TestSaveDecisionWithoutScore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	decision := masterkey.Decision{MasterKey: "MK-001", HasScore: false}
	if err := store.SaveDecision(ctx, "Dosagem de Vitamina K", decision); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}
	stats, err := store.CollectStats(ctx)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.Assignments != 1 {
		t.Fatalf("expected 1 assignment, got %+v", stats)
	}
}

func TestLoadRegistryIncludesMemberlessGroups(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertGroup(ctx, "MK-LOINC-718-7", "Hemoglobina", nil); err != nil {
		t.Fatalf("UpsertGroup: %v", err)
	}
	registry, err := store.LoadRegistry(ctx)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := registry["MK-LOINC-718-7"]; !ok {
		t.Fatal("memberless group must still be a registry key")
	}
}

func TestUpsertGroupIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.UpsertGroup(ctx, "MK-LOINC-2345-7", "Glicose", []string{"Glicose"}); err != nil {
			t.Fatalf("UpsertGroup: %v", err)
		}
	}
	groups, err := store.Groups(ctx)
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Members != 1 {
		t.Fatalf("expected one group with one member, got %+v", groups)
	}
}

func TestFingerprintRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutFingerprint(ctx, "abc123", "MK-001", "name"); err != nil {
		t.Fatalf("PutFingerprint: %v", err)
	}
	// First owner wins.
	if err := store.PutFingerprint(ctx, "abc123", "MK-002", "synonym"); err != nil {
		t.Fatalf("PutFingerprint duplicate: %v", err)
	}

	mk, ok, err := store.LookupFingerprint(ctx, "abc123")
	if err != nil {
		t.Fatalf("LookupFingerprint: %v", err)
	}
	if !ok || mk != "MK-001" {
		t.Fatalf("expected MK-001, got %s ok=%v", mk, ok)
	}

	if _, ok, err := store.LookupFingerprint(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestGroupDetail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertGroup(ctx, "MK-001", "Hemograma", []string{"Hemograma", "Hemograma Completo"}); err != nil {
		t.Fatalf("UpsertGroup: %v", err)
	}
	detail, err := store.Group(ctx, "MK-001")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if detail == nil || detail.CanonicalName != "Hemograma" || len(detail.Members) != 2 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	missing, err := store.Group(ctx, "MK-NOPE")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown key, got %+v err=%v", missing, err)
	}
}

func TestCollectStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveDecision(ctx, "Glicose", masterkey.Decision{MasterKey: "MK-001", Score: 0.9, HasScore: true, Reused: true}); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}
	if err := store.PutFingerprint(ctx, "h1", "MK-001", "name"); err != nil {
		t.Fatalf("PutFingerprint: %v", err)
	}

	stats, err := store.CollectStats(ctx)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	want := Stats{MasterKeys: 1, Members: 1, Fingerprints: 1, Assignments: 1, Reused: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}
