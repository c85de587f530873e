// Package config loads and validates the medkey TOML configuration.
// Secrets (Pinecone and OpenAI API keys) can also be injected through
// environment variables so they never have to live in the file.
package config
