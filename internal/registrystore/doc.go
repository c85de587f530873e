// Package registrystore persists the master key registry: groups, member
// record names, deterministic fingerprints for the retrieval fast path, and
// an append-only assignment audit log. It is the durable layer around the
// snapshot-in/snapshot-out engine in internal/masterkey, and it serializes
// writers with a file lock so at most one mutation is in flight per
// database.
package registrystore
