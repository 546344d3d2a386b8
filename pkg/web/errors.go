package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-voicechat/pkg/api"
	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// ValidationError rejects a malformed request with 400.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "web: invalid request: " + e.Message
	}
	return "web: invalid " + e.Field + ": " + e.Message
}

// handleError maps handler errors onto the JSON error envelope.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	resp := api.ErrorResponse{Error: "Internal server error"}

	var (
		verr *ValidationError
		uerr *chat.UpstreamError
		ferr *fiber.Error
	)
	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
		resp.Error = verr.Message
	case errors.Is(err, chat.ErrNotFound):
		status = fiber.StatusNotFound
		resp.Error = api.MsgConversationNotFound
	case errors.Is(err, chat.ErrEmptyDraft):
		status = fiber.StatusBadRequest
		resp.Error = api.MsgEmptyMessage
	case errors.Is(err, chat.ErrInFlight):
		status = fiber.StatusConflict
		resp.Error = api.MsgSubmitInFlight
	case errors.As(err, &uerr):
		resp.Error = api.MsgGenerateFailed
		resp.Details = uerr.Err.Error()
	case errors.As(err, &ferr):
		status = ferr.Code
		resp.Error = ferr.Message
	}

	if status >= fiber.StatusInternalServerError {
		s.cfg.Logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(resp)
}
