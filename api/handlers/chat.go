package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/api"
	"github.com/BaSui01/docflow/chat"
	"github.com/BaSui01/docflow/types"
)

// TurnProcessor runs one chat turn end to end.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, question string, documentFilter []string) (*chat.TurnResult, error)
}

// ChatHandler serves the chat turn endpoint.
type ChatHandler struct {
	service TurnProcessor
	timeout time.Duration
	logger  *zap.Logger
}

// NewChatHandler creates a chat handler. timeout bounds one full turn;
// 0 disables the bound.
func NewChatHandler(service TurnProcessor, timeout time.Duration, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		service: service,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "chat_handler")),
	}
}

// HandleTurn processes POST /api/v1/chat.
func (h *ChatHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, types.NewError(types.ErrInvalidInput, "method not allowed").
			WithHTTPStatus(http.StatusMethodNotAllowed), h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChatTurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.service.ProcessTurn(ctx, req.SessionID, req.Question, req.DocumentFilter)
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}

	h.logger.Info("chat turn served",
		zap.String("session_id", req.SessionID),
		zap.Bool("is_fallback", result.Response.IsFallback),
		zap.Int("iterations", result.RefinementSummary.TotalIterations),
		zap.Duration("duration", time.Since(start)))

	WriteSuccess(w, result)
}
