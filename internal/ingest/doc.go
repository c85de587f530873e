// Package ingest loads a curated exam base from CSV into the registry
// store: master key groups, deterministic fingerprints for the fast path,
// and (optionally) embedding vectors upserted into the external index.
package ingest
