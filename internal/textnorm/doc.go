// Package textnorm normalizes exam descriptor text for deterministic
// matching: accent folding, whitespace collapse, MD5 fingerprints, and the
// ordered search-variation expansion used by the fingerprint fast path.
package textnorm
