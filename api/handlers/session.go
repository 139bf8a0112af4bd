package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/api"
	"github.com/BaSui01/docflow/types"
)

// SessionCreator mints new session identities.
type SessionCreator interface {
	CreateSession(ctx context.Context) (string, error)
}

// SessionHandler serves the session endpoint.
type SessionHandler struct {
	sessions SessionCreator
	logger   *zap.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions SessionCreator, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With(zap.String("component", "session_handler")),
	}
}

// HandleCreate processes POST /api/v1/sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, types.NewError(types.ErrInvalidInput, "method not allowed").
			WithHTTPStatus(http.StatusMethodNotAllowed), h.logger)
		return
	}

	sessionID, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}

	h.logger.Info("session created", zap.String("session_id", sessionID))

	WriteSuccess(w, api.SessionResponse{SessionID: sessionID})
}
