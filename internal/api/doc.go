// Package api exposes the assignment workflows consumed by the CLI and the
// HTTP server, plus the wire types whose JSON field names are frozen for
// compatibility with the legacy serverless caller.
package api
