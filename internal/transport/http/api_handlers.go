package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/store"
)

const maxListLimit = 500

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	reg     *core.Registry
	inbox   *core.Inbox
	journal store.Journal
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(reg *core.Registry, inbox *core.Inbox, journal store.Journal, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		reg:     reg,
		inbox:   inbox,
		journal: journal,
		log:     logger,
	}
}

// CommandRequest is a wire message submitted over HTTP. Content and chat_id
// may be empty for control commands.
type CommandRequest struct {
	Sender  string `json:"sender" binding:"required"`
	Content string `json:"content"`
	ChatID  string `json:"chat_id"`
}

// CommandAccepted is returned once a command is queued.
type CommandAccepted struct {
	Kind   string `json:"kind"`
	Queued int    `json:"queued"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListSubscribers returns connected subscribers.
// GET /api/subscribers
func (h *APIHandlers) ListSubscribers(c *gin.Context) {
	c.JSON(http.StatusOK, subscribersToResponse(h.reg.List()))
}

// History returns journaled events, newest first.
// GET /api/history?chat_id=&limit=
func (h *APIHandlers) History(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "journal disabled"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	events, err := h.journal.ListEvents(c.Request.Context(), c.Query("chat_id"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, eventsToResponse(events))
}

// ListCommands returns journaled command outcomes, newest first.
// GET /api/commands?limit=
func (h *APIHandlers) ListCommands(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "journal disabled"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	records, err := h.journal.ListCommands(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list commands")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, commandsToResponse(records))
}

// SubmitCommand queues a command for the event loop.
// POST /api/commands
func (h *APIHandlers) SubmitCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid command request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	origin := "http"
	if operator := c.GetString(ContextKeyOperator); operator != "" {
		origin = "http:" + operator
	}

	cmd := proto.ToCommand(proto.Message{Sender: req.Sender, Content: req.Content, ChatID: req.ChatID}, origin)
	if err := h.inbox.TrySubmit(cmd); err != nil {
		if errors.Is(err, core.ErrInboxFull) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "command queue full"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay shutting down"})
		return
	}
	metrics.Commands.WithLabelValues(cmd.Kind.String(), "queued").Inc()

	h.log.Info().Str("kind", cmd.Kind.String()).Str("origin", origin).Msg("command queued over http")
	c.JSON(http.StatusAccepted, CommandAccepted{Kind: cmd.Kind.String(), Queued: h.inbox.Len()})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 || limit > maxListLimit {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		return 0, false
	}
	return limit, true
}
