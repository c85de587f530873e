package masterkey

import (
	"context"
	"log/slog"
	"strings"

	"medkey/internal/logging"
)

// Record is an incoming exam descriptor. Name is the display text and the
// query subject; the structured fields are optional and enrich the query
// text the same way the ingestion pipeline enriches embedding strings.
// Records are immutable once received.
type Record struct {
	Name     string `json:"name"`
	Method   string `json:"analytical_method"`
	Specimen string `json:"specimen_type"`
}

// QueryText concatenates the record fields into the retrieval query.
func (r Record) QueryText() string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(name)
	if method := strings.TrimSpace(r.Method); method != "" {
		b.WriteString(" MÉTODO: ")
		b.WriteString(method)
	}
	if specimen := strings.TrimSpace(r.Specimen); specimen != "" {
		b.WriteString(" COLETA: ")
		b.WriteString(specimen)
	}
	return b.String()
}

// Retriever is the hybrid search collaborator. Implementations return up to
// k candidates; the engine treats descending-score ordering as advisory and
// re-scans for the maximum itself.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]Candidate, error)
}

// Decision is the engine output for one record: the assigned master key,
// the score that justified it, and the updated registry snapshot.
type Decision struct {
	MasterKey string
	// Score is the best candidate score. HasScore is false when the
	// retriever returned no candidates at all.
	Score    float64
	HasScore bool
	// Reused reports whether an existing group was joined.
	Reused   bool
	Registry Registry
}

// Assigner orchestrates one assignment: validate, retrieve, decide, apply.
type Assigner struct {
	policy    Policy
	logger    *slog.Logger
	retriever Retriever
	keys      KeySource
}

// Option customizes the Assigner.
type Option func(*Assigner)

// WithPolicy overrides the decision policy.
func WithPolicy(policy Policy) Option {
	return func(a *Assigner) {
		a.policy = policy
	}
}

// WithKeySource injects a custom key generator (primarily for tests).
func WithKeySource(keys KeySource) Option {
	return func(a *Assigner) {
		if keys != nil {
			a.keys = keys
		}
	}
}

// NewAssigner constructs an assignment engine bound to the supplied
// retriever.
func NewAssigner(retriever Retriever, logger *slog.Logger, opts ...Option) *Assigner {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Assigner{
		policy:    DefaultPolicy(),
		logger:    logger.With(logging.String("component", "masterkey")),
		retriever: retriever,
		keys:      NewKeyGenerator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.policy = a.policy.normalized()
	return a
}

// Policy returns the normalized policy in effect.
func (a *Assigner) Policy() Policy {
	return a.policy
}

// Assign resolves one record against the registry snapshot. It fails closed:
// a retrieval error surfaces as *RetrievalError and the registry is returned
// untouched rather than the record being dropped into a new group under
// uncertain evidence.
func (a *Assigner) Assign(ctx context.Context, record Record, registry Registry) (Decision, error) {
	text := record.QueryText()
	if text == "" {
		return Decision{}, ErrInvalidRecord
	}
	if registry == nil {
		registry = Registry{}
	}

	candidates, err := a.retriever.Query(ctx, text, a.policy.TopK)
	if err != nil {
		return Decision{}, &RetrievalError{Err: err}
	}

	outcome := Decide(candidates, a.policy.DecisionThreshold)
	assigned, next, err := Apply(registry, strings.TrimSpace(record.Name), outcome, a.keys)
	if err != nil {
		return Decision{}, err
	}

	a.logger.Info("record assigned",
		logging.String("record", strings.TrimSpace(record.Name)),
		logging.String("master_key", assigned),
		logging.Bool("reused", outcome.Reuse),
		logging.Float64("score", outcome.Score),
		logging.Int("candidates", len(candidates)),
	)

	return Decision{
		MasterKey: assigned,
		Score:     outcome.Score,
		HasScore:  outcome.HasScore,
		Reused:    outcome.Reuse,
		Registry:  next,
	}, nil
}
