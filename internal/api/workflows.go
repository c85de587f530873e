package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medkey/internal/config"
	"medkey/internal/embedding/openai"
	"medkey/internal/ingest"
	"medkey/internal/masterkey"
	"medkey/internal/registrystore"
	"medkey/internal/retrieval"
	"medkey/internal/retrieval/pinecone"
)

// BuildRetriever wires the production hybrid retriever from configuration.
// The store argument enables the deterministic fingerprint fast path and
// may be nil.
func BuildRetriever(cfg *config.Config, store *registrystore.Store, logger *slog.Logger) (masterkey.Retriever, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	embedder, err := openai.NewClient(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	index, err := pinecone.New(cfg.Pinecone.APIKey, cfg.Pinecone.IndexHost, cfg.Pinecone.Namespace)
	if err != nil {
		return nil, fmt.Errorf("vector index client: %w", err)
	}
	opts := []retrieval.HybridOption{
		retrieval.WithDenseWeight(cfg.Assignment.DenseWeight),
	}
	if store != nil {
		opts = append(opts, retrieval.WithFingerprintLookup(store))
	}
	return retrieval.NewHybrid(embedder, index, logger, opts...), nil
}

// NewAssigner builds the engine with the configured policy.
func NewAssigner(cfg *config.Config, retriever masterkey.Retriever, logger *slog.Logger) *masterkey.Assigner {
	policy := masterkey.DefaultPolicy()
	if cfg != nil {
		policy.DecisionThreshold = cfg.Assignment.DecisionThreshold
		policy.TopK = cfg.Assignment.TopK
	}
	return masterkey.NewAssigner(retriever, logger, masterkey.WithPolicy(policy))
}

// AssignRequest describes one CLI/server-side assignment against the
// durable registry.
type AssignRequest struct {
	Config *config.Config
	Logger *slog.Logger
	Record masterkey.Record
}

// AssignRecord runs the full pipeline against the registry store: load the
// snapshot, assign, persist the decision. The store write is skipped when
// the engine fails, so retrieval failures leave the registry untouched.
func AssignRecord(ctx context.Context, req AssignRequest) (masterkey.Decision, error) {
	if req.Config == nil {
		return masterkey.Decision{}, errors.New("configuration is required")
	}

	store, err := registrystore.Open(req.Config)
	if err != nil {
		return masterkey.Decision{}, fmt.Errorf("open registry store: %w", err)
	}
	defer store.Close()

	retriever, err := BuildRetriever(req.Config, store, req.Logger)
	if err != nil {
		return masterkey.Decision{}, err
	}
	assigner := NewAssigner(req.Config, retriever, req.Logger)

	registry, err := store.LoadRegistry(ctx)
	if err != nil {
		return masterkey.Decision{}, err
	}

	decision, err := assigner.Assign(ctx, req.Record, registry)
	if err != nil {
		return masterkey.Decision{}, err
	}
	if err := store.SaveDecision(ctx, req.Record.Name, decision); err != nil {
		return masterkey.Decision{}, fmt.Errorf("persist decision: %w", err)
	}
	return decision, nil
}

// IngestRequest describes one base ingestion run.
type IngestRequest struct {
	Config *config.Config
	Logger *slog.Logger
	Path   string
	// IndexVectors enables embedding and vector upsert alongside the
	// registry and fingerprint writes.
	IndexVectors bool
}

// IngestBase loads the curated exam base into the registry store.
func IngestBase(ctx context.Context, req IngestRequest) (ingest.Summary, error) {
	if req.Config == nil {
		return ingest.Summary{}, errors.New("configuration is required")
	}
	store, err := registrystore.Open(req.Config)
	if err != nil {
		return ingest.Summary{}, fmt.Errorf("open registry store: %w", err)
	}
	defer store.Close()

	var opts []ingest.LoaderOption
	if req.IndexVectors {
		embedder, err := openai.NewClient(openai.Config{
			APIKey:     req.Config.OpenAI.APIKey,
			BaseURL:    req.Config.OpenAI.BaseURL,
			Model:      req.Config.OpenAI.Model,
			Dimensions: req.Config.OpenAI.Dimensions,
		})
		if err != nil {
			return ingest.Summary{}, fmt.Errorf("embedding client: %w", err)
		}
		index, err := pinecone.New(req.Config.Pinecone.APIKey, req.Config.Pinecone.IndexHost, req.Config.Pinecone.Namespace)
		if err != nil {
			return ingest.Summary{}, fmt.Errorf("vector index client: %w", err)
		}
		opts = append(opts, ingest.WithVectorPipeline(embedder, index))
	}

	loader := ingest.NewLoader(store, req.Logger, opts...)
	return loader.Run(ctx, req.Path)
}
