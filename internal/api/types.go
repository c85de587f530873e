package api

import "medkey/internal/masterkey"

// AssignEvent is the invocation payload. The registros_mestres field is the
// caller-supplied registry snapshot; when present the call is stateless and
// nothing is persisted. When absent the server-side registry store is the
// source of truth and the decision is persisted there.
type AssignEvent struct {
	NewRecord masterkey.Record    `json:"new_record"`
	Registry  map[string][]string `json:"registros_mestres"`
}

// AssignResponse is the invocation result. Field names are part of the
// external contract and must not change.
type AssignResponse struct {
	MasterKey string              `json:"master_key_atribuida"`
	Score     *float64            `json:"score"`
	Registry  map[string][]string `json:"novos_registros_mestres"`
}

// ResponseFromDecision shapes a decision into the wire contract. Score is
// null only when the retriever returned no candidates; a below-threshold
// best score is still reported.
func ResponseFromDecision(decision masterkey.Decision) AssignResponse {
	resp := AssignResponse{
		MasterKey: decision.MasterKey,
		Registry:  decision.Registry,
	}
	if decision.HasScore {
		score := decision.Score
		resp.Score = &score
	}
	return resp
}
