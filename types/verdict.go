package types

// SufficiencyVerdict is the evaluator's judgment of whether the current
// evidence can answer the question. Missing fields default to the
// conservative values (insufficient, zero confidence, empty lists).
type SufficiencyVerdict struct {
	IsSufficient       bool     `json:"is_sufficient"`
	ConfidenceScore    float64  `json:"confidence_score"`
	MissingAspects     []string `json:"missing_aspects"`
	SuggestedFollowups []string `json:"suggested_followups"`
}

// DefaultVerdict returns the conservative verdict substituted when the
// evaluator fails or returns a malformed payload.
func DefaultVerdict() SufficiencyVerdict {
	return SufficiencyVerdict{
		IsSufficient:       false,
		ConfidenceScore:    0.0,
		MissingAspects:     []string{},
		SuggestedFollowups: []string{},
	}
}

// IterationRecord is one entry in the refinement audit trail.
type IterationRecord struct {
	Iteration          int      `json:"iteration"`
	IsSufficient       bool     `json:"is_sufficient"`
	ConfidenceScore    float64  `json:"confidence_score"`
	DocumentsRetrieved int      `json:"documents_retrieved"`
	MissingAspects     []string `json:"missing_aspects"`
	SuggestedFollowups []string `json:"suggested_followups"`
}

// RefinementSummary reports the refinement loop's outcome for one turn.
type RefinementSummary struct {
	TotalIterations int               `json:"total_iterations"`
	MaxIterations   int               `json:"max_iterations"`
	History         []IterationRecord `json:"refinement_history"`
}
