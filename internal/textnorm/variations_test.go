package textnorm

import "testing"

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestVariationsOrderAndContent(t *testing.T) {
	got := Variations("Hemoglobina Glicada (HbA1c)")
	if len(got) < 4 {
		t.Fatalf("expected several variations, got %v", got)
	}
	if got[0] != "hemoglobina glicada (hba1c)" {
		t.Fatalf("first variation must be the lowercased original, got %q", got[0])
	}
	if !contains(got, "hba1c") {
		t.Fatalf("expected acronym variation, got %v", got)
	}
	if !contains(got, "hemoglobina glicada") {
		t.Fatalf("expected text without parenthetical, got %v", got)
	}
}

func TestVariationsStripsMethodTerms(t *testing.T) {
	got := Variations("Dosagem de Glicose")
	if !contains(got, "glicose") {
		t.Fatalf("expected bare analyte after modifier stripping, got %v", got)
	}
}

func TestVariationsNgrams(t *testing.T) {
	got := Variations("tolerancia a glicose oral")
	if !contains(got, "tolerancia a glicose") {
		t.Fatalf("expected leading trigram, got %v", got)
	}
	if !contains(got, "glicose oral") {
		t.Fatalf("expected bigram, got %v", got)
	}
	if !contains(got, "oral") {
		t.Fatalf("expected token variation, got %v", got)
	}
}

func TestVariationsDedupesAndHandlesEmpty(t *testing.T) {
	if got := Variations("   "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}

	got := Variations("glicose")
	if len(got) != 1 || got[0] != "glicose" {
		t.Fatalf("single unaccented token must collapse to one variation, got %v", got)
	}
}
