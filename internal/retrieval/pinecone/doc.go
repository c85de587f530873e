// Package pinecone is a minimal HTTP client for the Pinecone serverless
// data plane: vector query for retrieval and upsert for ingestion.
package pinecone
