package service

import (
	"context"
	"errors"
	"fmt"

	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/internal/sync"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidStatus        = errors.New("invalid conversation status")
)

var validStatuses = map[string]bool{
	models.ConversationOpen:     true,
	models.ConversationPending:  true,
	models.ConversationResolved: true,
	models.ConversationClosed:   true,
}

// ConversationService exposes the inbox: listing threads, reading history,
// changing status and replying. Ownership is checked on every lookup so one
// account can never read another's threads.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	engine        *sync.Engine
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	engine *sync.Engine,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		engine:        engine,
	}
}

func (s *ConversationService) List(ctx context.Context, userID uint, filter repository.ConversationFilter, limit, offset int) ([]models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.conversations.ListByUser(ctx, userID, filter, limit, offset)
}

func (s *ConversationService) Get(ctx context.Context, userID, id uint) (*models.Conversation, error) {
	conversation, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

func (s *ConversationService) Messages(ctx context.Context, userID, conversationID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.messages.ListByConversation(ctx, conversationID, limit, offset)
}

func (s *ConversationService) UpdateStatus(ctx context.Context, userID, conversationID uint, status string) (*models.Conversation, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	conversation, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.UpdateStatus(ctx, conversationID, status); err != nil {
		return nil, err
	}
	conversation.Status = status
	return conversation, nil
}

// Reply sends an agent message into the conversation's platform thread
func (s *ConversationService) Reply(ctx context.Context, userID, conversationID uint, text string) (*models.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.engine.SendReply(ctx, conversationID, userID, text)
}

// Typing toggles the customer-facing typing indicator, e.g. while an agent
// or the assistant is composing. Failures are swallowed by the engine.
func (s *ConversationService) Typing(ctx context.Context, userID, conversationID uint, on bool) error {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return err
	}
	s.engine.NotifyTyping(ctx, conversationID, on)
	return nil
}
