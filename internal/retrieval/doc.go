// Package retrieval implements the hybrid candidate retriever: a
// deterministic fingerprint fast path backed by the registry store, a dense
// vector search over the external index, and a lexical overlap score fused
// into a single ranking.
package retrieval
