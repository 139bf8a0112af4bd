// Package chat implements the iterative retrieval-evaluation-refinement
// loop that answers a user question against a document corpus.
//
// One user turn runs as a single sequential pipeline:
//
//	plan -> (retrieve -> evaluate -> refine)* -> resolve
//
// The Controller bounds the loop: after each evaluation it either stops
// (evidence sufficient, or budget exhausted) or derives follow-up queries
// for one more retrieval round. The Resolver turns the terminal state into
// either a synthesized answer with citations or a deterministic fallback.
package chat
