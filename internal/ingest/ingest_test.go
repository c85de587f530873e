package ingest

import (
	"context"
	"strings"
	"testing"

	"medkey/internal/registrystore"
	"medkey/internal/retrieval"
	"medkey/internal/retrieval/pinecone"
	"medkey/internal/testsupport"
	"medkey/internal/textnorm"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, nil
}

type fakeVectorWriter struct {
	upserted []pinecone.Vector
	batches  int
}

func (f *fakeVectorWriter) Upsert(_ context.Context, vectors []pinecone.Vector) (int, error) {
	f.batches++
	f.upserted = append(f.upserted, vectors...)
	return len(vectors), nil
}

func newTestStore(t *testing.T) *registrystore.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

const baseCSV = `LOINC_NUM,COMPONENTE,METODO,SISTEMA,SINONIMOS
718-7,Hemoglobina,Automatizado,Sangue,"Hb, Hgb"
2345-7,Glicose,Enzimático,Soro,
,Exame Raro Sem Codigo,,Urina,
2345-8,glicose,,Soro,
2345-9,,,Soro,
`

func TestRunBuildsGroupsAndFingerprints(t *testing.T) {
	store := newTestStore(t)
	loader := NewLoader(store, nil)

	summary, err := loader.run(context.Background(), strings.NewReader(baseCSV))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Rows != 5 {
		t.Fatalf("expected 5 rows, got %d", summary.Rows)
	}
	// One duplicate (glicose) plus one blank name.
	if summary.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", summary.Skipped)
	}
	if summary.Groups != 3 {
		t.Fatalf("expected 3 groups, got %d", summary.Groups)
	}
	if summary.Vectors != 0 {
		t.Fatalf("no vector pipeline configured, got %d vectors", summary.Vectors)
	}

	ctx := context.Background()
	detail, err := store.Group(ctx, "MK-LOINC-718-7")
	if err != nil || detail == nil {
		t.Fatalf("expected curated key group, got %+v err=%v", detail, err)
	}

	// The codeless row gets a deterministic hash-derived key.
	registry, err := store.LoadRegistry(ctx)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	hashKey := "MK-" + strings.ToUpper(textnorm.Fingerprint("Exame Raro Sem Codigo")[:8])
	if _, ok := registry[hashKey]; !ok {
		t.Fatalf("expected hash-derived key %s in %v", hashKey, registry)
	}

	// Synonyms fingerprint to the owning group.
	mk, ok, err := store.LookupFingerprint(ctx, textnorm.Hash("hb"))
	if err != nil || !ok || mk != "MK-LOINC-718-7" {
		t.Fatalf("synonym fingerprint lookup: mk=%s ok=%v err=%v", mk, ok, err)
	}
}

func TestRunVectorPipelineBatches(t *testing.T) {
	store := newTestStore(t)
	embedder := &fakeEmbedder{}
	writer := &fakeVectorWriter{}
	loader := NewLoader(store, nil,
		WithVectorPipeline(embedder, writer),
		WithBatchSize(2),
	)

	summary, err := loader.run(context.Background(), strings.NewReader(baseCSV))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Vectors != 3 {
		t.Fatalf("expected 3 vectors, got %d", summary.Vectors)
	}
	// Batch size 2 over 3 groups: one full flush plus the tail.
	if writer.batches != 2 {
		t.Fatalf("expected 2 upsert batches, got %d", writer.batches)
	}
	first := writer.upserted[0]
	if first.ID != "MK-LOINC-718-7" {
		t.Fatalf("unexpected vector id %s", first.ID)
	}
	if first.Metadata[retrieval.MetaMasterKey] != "MK-LOINC-718-7" || first.Metadata[retrieval.MetaName] != "Hemoglobina" {
		t.Fatalf("unexpected metadata: %v", first.Metadata)
	}
}

func TestRunRejectsBaseWithoutNameColumn(t *testing.T) {
	store := newTestStore(t)
	loader := NewLoader(store, nil)

	_, err := loader.run(context.Background(), strings.NewReader("id,valor\n1,2\n"))
	if err == nil {
		t.Fatal("expected error for missing name column")
	}
}

func TestEmbeddingStringFillsUnknown(t *testing.T) {
	got := embeddingString(row{Name: "Glicose"})
	want := "Glicose MÉTODO: UNKNOWN COLETA: UNKNOWN"
	if got != want {
		t.Fatalf("embeddingString = %q, want %q", got, want)
	}

	full := embeddingString(row{
		Name:            "Glicose",
		Method:          "Enzimático",
		Specimen:        "Soro",
		Synonyms:        "Glicemia",
		SearchableTerms: "acucar no sangue",
	})
	want = "Glicose MÉTODO: Enzimático COLETA: Soro. SINÔNIMOS: Glicemia. TERMOS DE BUSCA: acucar no sangue"
	if full != want {
		t.Fatalf("embeddingString = %q, want %q", full, want)
	}
}

func TestMapColumnsAliases(t *testing.T) {
	cols, err := mapColumns([]string{"LOINC_NUM", "COMPONENTE", "MÉTODO", "SISTEMA"})
	if err != nil {
		t.Fatalf("mapColumns: %v", err)
	}
	if cols.code != 0 || cols.name != 1 || cols.method != 2 || cols.specimen != 3 {
		t.Fatalf("unexpected column map: %+v", cols)
	}
	if cols.synonyms != -1 {
		t.Fatalf("expected missing synonyms column, got %d", cols.synonyms)
	}
}
