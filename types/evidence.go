package types

import "strconv"

// PageUnknown is the sentinel page number for fragments whose source page
// could not be determined.
const PageUnknown = -1

// EvidenceFragment is one retrieved unit of text plus its source metadata.
// Identity is by ID: two fragments with the same ID are the same evidence.
type EvidenceFragment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
	ChunkID    string `json:"chunk_id"`
}

// PageLabel renders the page number for context blocks and citations,
// mapping the PageUnknown sentinel to "Unknown".
func (f *EvidenceFragment) PageLabel() string {
	if f.PageNumber == PageUnknown {
		return "Unknown"
	}
	return strconv.Itoa(f.PageNumber)
}
