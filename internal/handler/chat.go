package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tdiprima/langchain-flask-api/internal/application"
	"github.com/tdiprima/langchain-flask-api/internal/domain"
	"github.com/tdiprima/langchain-flask-api/internal/prompt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler struct {
	svc    *application.ChatService
	logger *zap.SugaredLogger
}

func NewChatHandler(svc *application.ChatService, logger *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// AskReq is the /ask request body.
type AskReq struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Persona   string `json:"persona"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingQuestion.Error()})
		return
	}

	res, err := h.svc.Ask(c.Request.Context(), application.AskRequest{
		SessionID: req.SessionID,
		Question:  req.Question,
		Persona:   req.Persona,
		AuthToken: bearerToken(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingQuestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "completion timed out, retry later"})
		case errors.Is(err, domain.ErrUpstream):
			h.logger.Errorw("Completion failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "language model unavailable, retry later"})
		default:
			h.logger.Errorw("Ask failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	var username any
	if res.Authenticated {
		username = res.Username
	}
	c.JSON(http.StatusOK, gin.H{
		"answer":        res.Answer,
		"status":        "success",
		"session_id":    res.SessionID,
		"persona":       res.Persona,
		"question_type": res.QuestionType,
		"authenticated": res.Authenticated,
		"username":      username,
		"history":       res.History,
	})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'session_id' query parameter"})
		return
	}
	turns := h.svc.History(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"history":    turns,
		"count":      len(turns),
		"session_id": sessionID,
	})
}

func (h *ChatHandler) GetSessions(c *gin.Context) {
	ids := h.svc.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": ids,
		"count":    len(ids),
	})
}

// ClearHistoryReq is the /clear-history request body.
type ClearHistoryReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	var req ClearHistoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'session_id' in request body"})
		return
	}

	var message string
	if h.svc.ClearHistory(req.SessionID) {
		message = "Chat history for session " + req.SessionID + " cleared successfully"
	} else {
		message = "No history found for session " + req.SessionID
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    message,
		"status":     "success",
		"session_id": req.SessionID,
	})
}

func (h *ChatHandler) ClearAllHistory(c *gin.Context) {
	n := h.svc.ClearAllHistory()
	c.JSON(http.StatusOK, gin.H{
		"message": "Chat history cleared for all sessions",
		"status":  "success",
		"count":   n,
	})
}

func (h *ChatHandler) GenerateSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session_id": h.svc.GenerateSession(),
		"status":     "success",
	})
}

func (h *ChatHandler) SaveHistories(c *gin.Context) {
	if err := h.svc.SaveHistories(c.Request.Context()); err != nil {
		h.logger.Errorw("Explicit save failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save chat histories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Chat histories saved",
		"status":  "success",
	})
}

func (h *ChatHandler) GetPersonas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"personas":     prompt.PersonaNames(),
		"descriptions": prompt.Personas,
	})
}

func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bearerToken extracts the Bearer token from the Authorization header,
// empty when absent or malformed. /ask treats auth as optional.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
