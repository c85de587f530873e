// Package openai wraps the OpenAI embeddings endpoint used to vectorize
// exam descriptor text.
package openai
