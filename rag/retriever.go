package rag

import (
	"context"

	"github.com/BaSui01/docflow/types"
)

// Retriever is the retrieval collaborator contract. Search returns the topK
// fragments most similar to query, in relevance order. An empty result is
// not an error. A non-nil filter restricts results to fragments whose
// DocumentID is in the set.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, filter []string) ([]types.EvidenceFragment, error)
}
