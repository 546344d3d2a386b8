package web

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-voicechat/pkg/api"
)

var errEmptyGeneration = errors.New("empty response from model")

// handleGenerate sends the last message of the request to the generator.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req api.GenerateRequest
	if err := c.BodyParser(&req); err != nil || len(req.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: api.MsgInvalidMessages}
	}
	prompt := strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	if prompt == "" {
		return &ValidationError{Field: "messages", Message: api.MsgInvalidMessages}
	}

	start := time.Now()
	text, err := s.cfg.Generator.GenerateText(c.UserContext(), prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyGeneration
	}
	if err != nil {
		s.cfg.Logger.Error("generation failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(api.ErrorResponse{
			Error:   api.MsgGenerateFailed,
			Details: err.Error(),
		})
	}

	s.cfg.Logger.Debug("generated",
		"prompt_chars", len(prompt),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return c.JSON(api.GenerateResponse{Response: text})
}

// handleTranscribe transcribes the multipart "audio" field.
func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return transcribeFailure(c, fiber.StatusBadRequest, api.MsgAudioRequired, "")
	}

	f, err := fh.Open()
	if err != nil {
		return transcribeFailure(c, fiber.StatusBadRequest, api.MsgAudioRequired, err.Error())
	}
	audio, err := io.ReadAll(f)
	f.Close()
	if err != nil || len(audio) == 0 {
		return transcribeFailure(c, fiber.StatusBadRequest, api.MsgAudioRequired, "")
	}

	start := time.Now()
	text, err := s.cfg.Transcriber.Transcribe(c.UserContext(), audio, fh.Header.Get("Content-Type"))
	if err != nil {
		s.cfg.Logger.Error("transcription failed", "bytes", len(audio), "error", err)
		return transcribeFailure(c, fiber.StatusInternalServerError, api.MsgTranscribeFailed, err.Error())
	}

	s.cfg.Logger.Debug("transcribed",
		"bytes", len(audio),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return c.JSON(api.TranscribeResponse{Result: text, Success: true})
}

func transcribeFailure(c *fiber.Ctx, status int, msg, details string) error {
	success := false
	return c.Status(status).JSON(api.ErrorResponse{
		Error:   msg,
		Details: details,
		Success: &success,
	})
}
