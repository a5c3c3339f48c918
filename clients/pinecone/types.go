package pinecone

import (
	"github.com/pinecone-io/go-pinecone/pinecone"
)

// pineconeService wraps the official SDK client behind the ForBaseIndex API
// used by the embedding cache.
type pineconeService struct {
	client *pinecone.Client
}

// indexOperations scopes Search/Upsert/Delete to one index connection.
type indexOperations struct {
	index *pinecone.IndexConnection
}

// Vector re-exports the SDK's vector type for callers outside this package.
type Vector = pinecone.Vector

// QueryMatch re-exports the SDK's scored-vector type for callers outside
// this package.
type QueryMatch = pinecone.ScoredVector

// Metadata re-exports the SDK's metadata type for callers outside this
// package.
type Metadata = pinecone.Metadata
