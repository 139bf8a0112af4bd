package types

// QuestionType classifies the user's question for retrieval planning.
type QuestionType string

const (
	QuestionDefinition  QuestionType = "definition"
	QuestionComparison  QuestionType = "comparison"
	QuestionProsCons    QuestionType = "pros_cons"
	QuestionExplanation QuestionType = "explanation"
	QuestionProcedural  QuestionType = "procedural"
	QuestionOther       QuestionType = "other"
)

// ValidQuestionType reports whether t is one of the known question types.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionDefinition, QuestionComparison, QuestionProsCons,
		QuestionExplanation, QuestionProcedural, QuestionOther:
		return true
	}
	return false
}

// SearchQuery is a single planned search with its requested result count.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// RetrievalPlan is the planner's output for one user turn. It is immutable
// after creation; InitialQueries bounds the first retrieval round.
type RetrievalPlan struct {
	ResolvedQuestion string        `json:"resolved_question"`
	QuestionType     QuestionType  `json:"question_type"`
	SearchQueries    []SearchQuery `json:"search_queries"`
	MaxSearches      int           `json:"max_searches"`
}

// InitialQueries returns SearchQueries[:MaxSearches], the queries that bound
// the initial retrieval round.
func (p *RetrievalPlan) InitialQueries() []SearchQuery {
	n := p.MaxSearches
	if n <= 0 || n > len(p.SearchQueries) {
		n = len(p.SearchQueries)
	}
	return p.SearchQueries[:n]
}

// ConversationTurn is one prior question/answer pair supplied to the planner
// for reference resolution.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
