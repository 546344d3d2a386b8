package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-voicechat/pkg/api"
	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// view renders conv with its selection and loading flags.
func (s *Server) view(conv chat.Conversation) api.ConversationView {
	v := api.NewConversationView(conv)
	v.Active = s.cfg.Store.ActiveID() == conv.ID
	v.Loading = s.flow.Loading(conv.ID)
	return v
}

// recovered logs and swallows persistence errors; the in-memory state is
// already updated when one is returned.
func (s *Server) recovered(err error) error {
	var perr *chat.PersistenceError
	if errors.As(err, &perr) {
		s.cfg.Logger.Warn("snapshot not saved", "op", perr.Op, "error", perr.Err)
		return nil
	}
	return err
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	convs := s.cfg.Store.List()
	out := api.ConversationList{
		Conversations: make([]api.ConversationView, len(convs)),
		ActiveID:      s.cfg.Store.ActiveID(),
	}
	for i, conv := range convs {
		out.Conversations[i] = s.view(conv)
	}
	return c.JSON(out)
}

func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	conv, err := s.cfg.Store.Create(c.UserContext())
	if err := s.recovered(err); err != nil {
		return err
	}

	v := s.view(conv)
	ev := api.NewEvent(api.EventConversationCreated, conv.ID)
	ev.Conversation = &v
	s.publish(ev)

	return c.Status(fiber.StatusCreated).JSON(v)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conv, err := s.cfg.Store.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(s.view(conv))
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.recovered(s.cfg.Store.Delete(c.UserContext(), id)); err != nil {
		return err
	}

	s.publish(api.NewEvent(api.EventConversationDeleted, id))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRenameConversation(c *fiber.Ctx) error {
	var req api.RenameRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Field: "title", Message: api.MsgInvalidTitle}
	}

	conv, err := s.cfg.Store.Rename(c.UserContext(), c.Params("id"), strings.TrimSpace(req.Title))
	if err := s.recovered(err); err != nil {
		return err
	}
	return c.JSON(s.publishUpdated(conv))
}

func (s *Server) handleSelectConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.cfg.Store.Select(id); err != nil {
		return err
	}
	conv, err := s.cfg.Store.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(s.publishUpdated(conv))
}

// handleCreateMessage submits a draft and answers with the conversation
// after the reply is appended. The reply itself is also broadcast.
func (s *Server) handleCreateMessage(c *fiber.Ctx) error {
	var req api.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return &ValidationError{Field: "content", Message: api.MsgEmptyMessage}
	}

	conv, err := s.flow.SubmitTo(c.UserContext(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(s.view(conv))
}

func (s *Server) publishUpdated(conv chat.Conversation) api.ConversationView {
	v := s.view(conv)
	ev := api.NewEvent(api.EventConversationUpdated, conv.ID)
	ev.Conversation = &v
	s.publish(ev)
	return v
}

func (s *Server) publishReply(id string, msg chat.Message) {
	ev := api.NewEvent(api.EventMessageAppended, id)
	mv := api.NewMessageView(msg)
	ev.Message = &mv
	if conv, err := s.cfg.Store.Get(id); err == nil {
		v := api.NewConversationView(conv)
		v.Active = s.cfg.Store.ActiveID() == id
		ev.Conversation = &v
	}
	s.publish(ev)
}

func (s *Server) publishFailure(id string, err error) {
	ev := api.NewEvent(api.EventSubmitFailed, id)
	ev.Error = err.Error()
	s.publish(ev)
}
