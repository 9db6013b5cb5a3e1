package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/pkg/logger"
	"omnichan/backend/pkg/resilience"
)

// Completer is the LLM capability the service depends on
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

const transcriptWindow = 20

// Service layers support-agent assistance on top of an LLM: reply drafting
// and conversation analysis. All LLM calls go through a circuit breaker so a
// degraded provider fails fast instead of piling up requests.
type Service struct {
	completer     Completer
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	breaker       *resilience.CircuitBreaker
	log           *logger.Logger
}

func NewService(
	completer Completer,
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		completer:     completer,
		messages:      messages,
		conversations: conversations,
		breaker:       resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm"), log),
		log:           log,
	}
}

// SuggestReply drafts a response to the latest customer messages in the
// conversation.
func (s *Service) SuggestReply(ctx context.Context, conversationID uint) (string, error) {
	transcript, err := s.transcript(ctx, conversationID)
	if err != nil {
		return "", err
	}

	prompt := []ChatMessage{
		{Role: "system", Content: "You are a customer support assistant. Draft a concise, friendly reply to the customer's latest message. Answer with the reply text only."},
		{Role: "user", Content: transcript},
	}

	var reply string
	err = s.breaker.Execute(func() error {
		var cerr error
		reply, cerr = s.completer.Complete(ctx, prompt)
		return cerr
	})
	if err != nil {
		return "", fmt.Errorf("suggesting reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

type analysisResult struct {
	Intent              string  `json:"intent"`
	Sentiment           string  `json:"sentiment"`
	PurchaseProbability float64 `json:"purchaseProbability"`
	Urgency             string  `json:"urgency"`
}

// AnalyzeConversation asks the LLM to classify the conversation and stores
// the result on the conversation row.
func (s *Service) AnalyzeConversation(ctx context.Context, conversationID uint) error {
	transcript, err := s.transcript(ctx, conversationID)
	if err != nil {
		return err
	}

	prompt := []ChatMessage{
		{Role: "system", Content: `Classify the customer conversation. Respond with JSON only: {"intent": string, "sentiment": "positive"|"neutral"|"negative", "purchaseProbability": number between 0 and 1, "urgency": "low"|"medium"|"high"}`},
		{Role: "user", Content: transcript},
	}

	var raw string
	err = s.breaker.Execute(func() error {
		var cerr error
		raw, cerr = s.completer.Complete(ctx, prompt)
		return cerr
	})
	if err != nil {
		return fmt.Errorf("analyzing conversation: %w", err)
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return fmt.Errorf("parsing analysis response: %w", err)
	}

	if err := s.conversations.UpdateAnalysis(ctx, conversationID,
		result.Intent, result.Sentiment, result.PurchaseProbability, result.Urgency); err != nil {
		return fmt.Errorf("storing analysis: %w", err)
	}

	s.log.Debug("Conversation analyzed",
		"conversation_id", conversationID,
		"intent", result.Intent,
		"sentiment", result.Sentiment)
	return nil
}

func (s *Service) transcript(ctx context.Context, conversationID uint) (string, error) {
	messages, err := s.messages.ListByConversation(ctx, conversationID, transcriptWindow, 0)
	if err != nil {
		return "", fmt.Errorf("loading conversation transcript: %w", err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("conversation %d has no messages", conversationID)
	}

	var b strings.Builder
	for _, m := range messages {
		label := "Customer"
		if m.SenderType != models.SenderCustomer {
			label = "Agent"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}
	return b.String(), nil
}

// extractJSON tolerates models that wrap JSON in code fences or prose
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// MessageReceived re-analyzes the conversation in the background after each
// inbound customer message. Called on the event worker, so the LLM call is
// detached with its own timeout.
func (s *Service) MessageReceived(conversation *models.Conversation, message *models.Message) {
	id := conversation.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := s.AnalyzeConversation(ctx, id); err != nil {
			s.log.Warn("Background conversation analysis failed", "conversation_id", id, "error", err)
		}
	}()
}

func (s *Service) MessageSent(conversation *models.Conversation, message *models.Message) {}

func (s *Service) ReceiptApplied(conversation *models.Conversation, kind string, watermark time.Time) {
}
