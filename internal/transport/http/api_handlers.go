package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/proto"
)

// APIHandlers provides HTTP handlers for the message REST API.
type APIHandlers struct {
	ctrl *core.Controller
	log  *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(ctrl *core.Controller, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		ctrl: ctrl,
		log:  logger,
	}
}

// SubmitRequest represents the submit request body.
type SubmitRequest struct {
	Text string `json:"text"`
}

// SubmitResponse is returned for an accepted submission.
type SubmitResponse struct {
	Message proto.Message  `json:"message"`
	Reply   *proto.Message `json:"reply,omitempty"`
	State   proto.State    `json:"state"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ListMessages returns the whole log.
// GET /api/messages
func (h *APIHandlers) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, messagesToProto(h.ctrl.Messages()))
}

// GetMessage returns a single message, used by clients to copy its text.
// GET /api/messages/:id
func (h *APIHandlers) GetMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	msg, found := h.ctrl.Message(id)
	if !found {
		writeError(c, http.StatusNotFound, core.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, messageToProto(msg))
}

// Submit validates the text, appends it and starts the completion.
// POST /api/messages
//
// With ?wait=true the handler blocks until the reply is appended or the
// request fails.
func (h *APIHandlers) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid submit request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	pending, err := h.ctrl.Submit(c.Request.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInputRequired):
			writeError(c, http.StatusBadRequest, err)
		case errors.Is(err, core.ErrBusy):
			writeError(c, http.StatusConflict, err)
		default:
			h.log.Error().Err(err).Msg("submit failed")
			writeError(c, http.StatusInternalServerError, err)
		}
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); !wait {
		c.JSON(http.StatusAccepted, SubmitResponse{
			Message: messageToProto(pending.User),
			State:   stateToProto(h.ctrl.State()),
		})
		return
	}

	res, err := pending.Wait(c.Request.Context())
	if err != nil {
		// The client went away; the request still completes in the background.
		h.log.Debug().Err(err).Int64("user_message_id", pending.User.ID).Msg("stopped waiting for completion")
		return
	}
	switch {
	case errors.Is(res.Err, core.ErrDiscarded):
		writeError(c, http.StatusConflict, res.Err)
		return
	case res.Err != nil:
		writeError(c, http.StatusBadGateway, res.Err)
		return
	}

	reply := messageToProto(*res.Reply)
	c.JSON(http.StatusOK, SubmitResponse{
		Message: messageToProto(res.User),
		Reply:   &reply,
		State:   stateToProto(h.ctrl.State()),
	})
}

// DeleteMessage removes one message. Unknown ids still yield 204.
// DELETE /api/messages/:id
func (h *APIHandlers) DeleteMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if h.ctrl.Delete(context.WithoutCancel(c.Request.Context()), id) {
		h.log.Info().Int64("message_id", id).Msg("message deleted")
	}
	c.Status(http.StatusNoContent)
}

// ClearMessages empties the log.
// DELETE /api/messages
func (h *APIHandlers) ClearMessages(c *gin.Context) {
	h.ctrl.Clear(context.WithoutCancel(c.Request.Context()))
	h.log.Info().Msg("conversation cleared")
	c.Status(http.StatusNoContent)
}

// GetState returns the loading and error state.
// GET /api/state
func (h *APIHandlers) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, stateToProto(h.ctrl.State()))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id", Code: core.ErrCodeBadRequest})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, status int, err error) {
	ce := core.ToCoreError(err)
	c.JSON(status, ErrorResponse{Error: ce.Message, Code: ce.Code})
}
