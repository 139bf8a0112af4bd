// Package rag implements the retrieval side of the refinement loop: the
// evidence accumulator, the per-round retrieval runner, the sufficiency
// gate, and the retriever implementations (Qdrant, in-memory).
package rag
