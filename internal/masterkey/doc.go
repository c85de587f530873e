// Package masterkey implements the master key assignment engine: the
// threshold decision policy that chooses between reusing an existing
// master key and minting a new one, the collision-checked key generator,
// and the copy-on-write registry state transition.
//
// The engine is deliberately stateless. Every Assign call receives the
// current registry snapshot and returns a new one; durable storage and
// serialization of concurrent writers belong to the caller (see
// registrystore).
package masterkey
