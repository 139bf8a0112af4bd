package types

// Citation points at the source of one piece of evidence used in an answer.
type Citation struct {
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
	ChunkID    string `json:"chunk_id"`
}

// AnswerResult is the resolved response for one turn. Citations are
// deduplicated by (DocumentID, PageNumber) in first-seen order. IsFallback
// marks a deterministically constructed answer produced without an LLM call.
type AnswerResult struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	IsFallback bool       `json:"is_fallback"`
}

// DedupCitations collapses fragments into citations, keeping the first
// fragment seen for each (DocumentID, PageNumber) pair.
func DedupCitations(fragments []EvidenceFragment) []Citation {
	type pageKey struct {
		doc  string
		page int
	}
	seen := make(map[pageKey]bool, len(fragments))
	citations := make([]Citation, 0, len(fragments))
	for _, f := range fragments {
		key := pageKey{doc: f.DocumentID, page: f.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, Citation{
			DocumentID: f.DocumentID,
			PageNumber: f.PageNumber,
			ChunkID:    f.ChunkID,
		})
	}
	return citations
}
