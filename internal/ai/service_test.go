package ai

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/pkg/logger"
)

type stubCompleter struct {
	response string
	err      error
	prompts  [][]ChatMessage
}

func (s *stubCompleter) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	s.prompts = append(s.prompts, messages)
	return s.response, s.err
}

type stubMessages struct {
	repository.MessageRepository
	msgs []models.Message
}

func (s stubMessages) ListByConversation(_ context.Context, _ uint, _, _ int) ([]models.Message, error) {
	return s.msgs, nil
}

type stubConversations struct {
	repository.ConversationRepository
	intent    string
	sentiment string
	prob      float64
	urgency   string
	updated   bool
}

func (s *stubConversations) UpdateAnalysis(_ context.Context, _ uint, intent, sentiment string, prob float64, urgency string) error {
	s.intent, s.sentiment, s.prob, s.urgency = intent, sentiment, prob, urgency
	s.updated = true
	return nil
}

func newTestService(completer Completer, msgs []models.Message, convs *stubConversations) *Service {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	if convs == nil {
		convs = &stubConversations{}
	}
	return NewService(completer, stubMessages{msgs: msgs}, convs, log)
}

func transcriptMessages() []models.Message {
	return []models.Message{
		{SenderType: models.SenderCustomer, Content: "My order never arrived", SentAt: time.Now()},
		{SenderType: models.SenderAgent, Content: "Let me check that for you", SentAt: time.Now()},
	}
}

func TestSuggestReply(t *testing.T) {
	completer := &stubCompleter{response: "  I'm sorry about the delay, your order ships today.  "}
	svc := newTestService(completer, transcriptMessages(), nil)

	reply, err := svc.SuggestReply(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "I'm sorry about the delay, your order ships today.", reply)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0][1].Content, "My order never arrived")
}

func TestSuggestReplyEmptyConversation(t *testing.T) {
	svc := newTestService(&stubCompleter{response: "hi"}, nil, nil)

	_, err := svc.SuggestReply(context.Background(), 1)
	assert.Error(t, err)
}

func TestAnalyzeConversation(t *testing.T) {
	completer := &stubCompleter{
		response: "```json\n{\"intent\": \"complaint\", \"sentiment\": \"negative\", \"purchaseProbability\": 0.2, \"urgency\": \"high\"}\n```",
	}
	convs := &stubConversations{}
	svc := newTestService(completer, transcriptMessages(), convs)

	require.NoError(t, svc.AnalyzeConversation(context.Background(), 1))
	assert.True(t, convs.updated)
	assert.Equal(t, "complaint", convs.intent)
	assert.Equal(t, "negative", convs.sentiment)
	assert.InDelta(t, 0.2, convs.prob, 1e-9)
	assert.Equal(t, "high", convs.urgency)
}

func TestAnalyzeConversationCompleterFailure(t *testing.T) {
	convs := &stubConversations{}
	svc := newTestService(&stubCompleter{err: errors.New("rate limited")}, transcriptMessages(), convs)

	err := svc.AnalyzeConversation(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, convs.updated)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`Here you go: {"a":1} hope that helps`))
	assert.Equal(t, "no braces", extractJSON("no braces"))
}
