package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"medkey/internal/logging"
	"medkey/internal/registrystore"
	"medkey/internal/retrieval"
	"medkey/internal/retrieval/pinecone"
	"medkey/internal/textnorm"
)

const (
	defaultBatchSize = 50
	unknownField     = "UNKNOWN"
)

// BatchEmbedder vectorizes embedding strings in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter pushes vectors into the external index.
type VectorWriter interface {
	Upsert(ctx context.Context, vectors []pinecone.Vector) (int, error)
}

// Summary reports what one ingestion run produced.
type Summary struct {
	Rows         int
	Groups       int
	Fingerprints int
	Vectors      int
	Skipped      int
}

// Loader ingests the curated base. Embedding and vector upsert are optional;
// without them the run populates only the registry and fingerprint tables.
type Loader struct {
	store     *registrystore.Store
	embedder  BatchEmbedder
	vectors   VectorWriter
	logger    *slog.Logger
	batchSize int
}

// LoaderOption customizes the Loader.
type LoaderOption func(*Loader)

// WithVectorPipeline enables embedding and index upsert.
func WithVectorPipeline(embedder BatchEmbedder, vectors VectorWriter) LoaderOption {
	return func(l *Loader) {
		l.embedder = embedder
		l.vectors = vectors
	}
}

// WithBatchSize overrides the embed/upsert batch size.
func WithBatchSize(size int) LoaderOption {
	return func(l *Loader) {
		if size > 0 {
			l.batchSize = size
		}
	}
}

// NewLoader constructs an ingestion loader bound to the registry store.
func NewLoader(store *registrystore.Store, logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loader{
		store:     store,
		logger:    logger.With(logging.String("component", "ingest")),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// row is one parsed CSV record.
type row struct {
	Code            string
	Name            string
	Method          string
	Specimen        string
	Synonyms        string
	SearchableTerms string
}

// Run ingests the CSV file at path.
func (l *Loader) Run(ctx context.Context, path string) (Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open base file: %w", err)
	}
	defer file.Close()
	return l.run(ctx, file)
}

func (l *Loader) run(ctx context.Context, r io.Reader) (Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	seen := map[string]struct{}{}

	type pending struct {
		mk   string
		text string
		name string
	}
	var batch []pending

	flush := func() error {
		if len(batch) == 0 || l.embedder == nil || l.vectors == nil {
			batch = nil
			return nil
		}
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		embedded, err := l.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(embedded) != len(batch) {
			return fmt.Errorf("embed batch: expected %d vectors, got %d", len(batch), len(embedded))
		}
		vectors := make([]pinecone.Vector, len(batch))
		for i, p := range batch {
			vectors[i] = pinecone.Vector{
				ID:     p.mk,
				Values: embedded[i],
				Metadata: map[string]string{
					retrieval.MetaMasterKey: p.mk,
					retrieval.MetaName:      p.name,
				},
			}
		}
		count, err := l.vectors.Upsert(ctx, vectors)
		if err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		summary.Vectors += count
		batch = nil
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read row %d: %w", summary.Rows+2, err)
		}
		summary.Rows++

		parsed := cols.parse(record)
		if strings.TrimSpace(parsed.Name) == "" {
			summary.Skipped++
			continue
		}

		// Dedupe by the folded component: source bases repeat the same
		// analyte under cosmetic variations.
		folded := textnorm.Fold(parsed.Name)
		if _, ok := seen[folded]; ok {
			summary.Skipped++
			continue
		}
		seen[folded] = struct{}{}

		mk := masterKeyFor(parsed)
		if err := l.store.UpsertGroup(ctx, mk, parsed.Name, []string{parsed.Name}); err != nil {
			return summary, err
		}
		summary.Groups++

		added, err := l.storeFingerprints(ctx, mk, parsed)
		if err != nil {
			return summary, err
		}
		summary.Fingerprints += added

		if l.embedder != nil && l.vectors != nil {
			batch = append(batch, pending{mk: mk, text: embeddingString(parsed), name: parsed.Name})
			if len(batch) >= l.batchSize {
				if err := flush(); err != nil {
					return summary, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	l.logger.Info("base ingested",
		logging.Int("rows", summary.Rows),
		logging.Int("groups", summary.Groups),
		logging.Int("fingerprints", summary.Fingerprints),
		logging.Int("vectors", summary.Vectors),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (l *Loader) storeFingerprints(ctx context.Context, mk string, parsed row) (int, error) {
	added := 0
	for _, variation := range textnorm.Variations(parsed.Name) {
		if err := l.store.PutFingerprint(ctx, textnorm.Hash(variation), mk, "name"); err != nil {
			return added, err
		}
		added++
	}
	for _, synonym := range strings.Split(parsed.Synonyms, ",") {
		synonym = strings.TrimSpace(synonym)
		if synonym == "" {
			continue
		}
		for _, variation := range textnorm.Variations(synonym) {
			if err := l.store.PutFingerprint(ctx, textnorm.Hash(variation), mk, "synonym"); err != nil {
				return added, err
			}
			added++
		}
	}
	return added, nil
}

// masterKeyFor derives the group identifier: curated code when present,
// otherwise a deterministic hash of the folded name so re-ingesting the
// same base is idempotent.
func masterKeyFor(parsed row) string {
	if code := strings.TrimSpace(parsed.Code); code != "" {
		return "MK-LOINC-" + code
	}
	return "MK-" + strings.ToUpper(textnorm.Fingerprint(parsed.Name)[:8])
}

// embeddingString builds the rich context string indexed for dense search.
func embeddingString(parsed row) string {
	var b strings.Builder
	b.WriteString(parsed.Name)
	b.WriteString(" MÉTODO: ")
	b.WriteString(orUnknown(parsed.Method))
	b.WriteString(" COLETA: ")
	b.WriteString(orUnknown(parsed.Specimen))
	if s := strings.TrimSpace(parsed.Synonyms); s != "" {
		b.WriteString(". SINÔNIMOS: ")
		b.WriteString(s)
	}
	if s := strings.TrimSpace(parsed.SearchableTerms); s != "" {
		b.WriteString(". TERMOS DE BUSCA: ")
		b.WriteString(s)
	}
	return b.String()
}

func orUnknown(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return unknownField
}
