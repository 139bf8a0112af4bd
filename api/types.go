package api

// ChatTurnRequest asks the service to answer one question within a session.
type ChatTurnRequest struct {
	// Session identity, created via the sessions endpoint
	SessionID string `json:"session_id"`
	// The user's question
	Question string `json:"question"`
	// Optional restriction to these document IDs
	DocumentFilter []string `json:"document_filter,omitempty"`
}

// SessionResponse returns a newly created session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}
