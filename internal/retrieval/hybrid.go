package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"medkey/internal/logging"
	"medkey/internal/masterkey"
	"medkey/internal/textnorm"
)

// Metadata keys carried on index matches. The ingestion pipeline writes
// them; the retriever reads them back to fuse lexical scores and resolve
// master keys.
const (
	MetaMasterKey = "master_key"
	MetaName      = "name"
)

// Embedder produces a dense vector for a query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one dense search result from the vector index.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorIndex is the dense similarity search collaborator.
type VectorIndex interface {
	QueryVector(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// FingerprintLookup resolves deterministic fingerprint hashes to master keys.
type FingerprintLookup interface {
	LookupFingerprint(ctx context.Context, hash string) (string, bool, error)
}

const defaultDenseWeight = 0.7

// Hybrid fuses dense and lexical signals into one candidate ranking. When a
// fingerprint lookup is configured, an exact deterministic hit short-circuits
// the vector search entirely and returns a single score-1.0 candidate.
type Hybrid struct {
	embedder    Embedder
	index       VectorIndex
	prints      FingerprintLookup
	logger      *slog.Logger
	denseWeight float64
}

// HybridOption customizes the retriever.
type HybridOption func(*Hybrid)

// WithFingerprintLookup enables the deterministic fast path.
func WithFingerprintLookup(prints FingerprintLookup) HybridOption {
	return func(h *Hybrid) {
		h.prints = prints
	}
}

// WithDenseWeight overrides the dense share of the fused score. Values
// outside (0,1] fall back to the default.
func WithDenseWeight(weight float64) HybridOption {
	return func(h *Hybrid) {
		if weight > 0 && weight <= 1 {
			h.denseWeight = weight
		}
	}
}

// NewHybrid constructs the production retriever.
func NewHybrid(embedder Embedder, index VectorIndex, logger *slog.Logger, opts ...HybridOption) *Hybrid {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Hybrid{
		embedder:    embedder,
		index:       index,
		logger:      logger.With(logging.String("component", "retrieval")),
		denseWeight: defaultDenseWeight,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Query returns up to k candidates ordered by descending fused score.
func (h *Hybrid) Query(ctx context.Context, text string, k int) ([]masterkey.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 1
	}

	if h.prints != nil {
		candidate, ok, err := h.fingerprintHit(ctx, text)
		if err != nil {
			return nil, err
		}
		if ok {
			return []masterkey.Candidate{candidate}, nil
		}
	}

	vector, err := h.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := h.index.QueryVector(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	queryTokens := tokenSet(textnorm.Fold(text))
	candidates := make([]masterkey.Candidate, 0, len(matches))
	for _, m := range matches {
		mk := m.Metadata[MetaMasterKey]
		if mk == "" {
			mk = m.ID
		}
		if mk == "" {
			continue
		}
		fused := m.Score
		if name := m.Metadata[MetaName]; name != "" {
			lexical := overlapScore(queryTokens, tokenSet(textnorm.Fold(name)))
			fused = h.denseWeight*m.Score + (1-h.denseWeight)*lexical
		}
		candidates = append(candidates, masterkey.Candidate{
			MasterKey: mk,
			Score:     fused,
			Metadata:  m.Metadata,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	h.logger.Debug("hybrid query",
		logging.String("text", text),
		logging.Int("matches", len(matches)),
		logging.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (h *Hybrid) fingerprintHit(ctx context.Context, text string) (masterkey.Candidate, bool, error) {
	for _, variation := range textnorm.Variations(text) {
		mk, ok, err := h.prints.LookupFingerprint(ctx, textnorm.Hash(variation))
		if err != nil {
			return masterkey.Candidate{}, false, fmt.Errorf("fingerprint lookup: %w", err)
		}
		if !ok {
			continue
		}
		h.logger.Debug("fingerprint hit",
			logging.String("variation", variation),
			logging.String("master_key", mk),
		)
		return masterkey.Candidate{
			MasterKey: mk,
			Score:     1.0,
			Metadata:  map[string]string{"match": "fingerprint", "variation": variation},
		}, true, nil
	}
	return masterkey.Candidate{}, false, nil
}
