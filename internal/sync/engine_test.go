package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnichan/backend/internal/facebook"
	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/pkg/logger"
)

// In-memory repository fakes. They mirror the conditional-update semantics
// of the real store: unique keys absorb duplicate creates, receipts only
// touch rows the WHERE guards admit.

type fakeCustomers struct {
	seq  uint
	rows []*models.Customer
}

func (f *fakeCustomers) FindByFacebookID(_ context.Context, userID uint, facebookID string) (*models.Customer, error) {
	for _, c := range f.rows {
		if c.UserID == userID && c.FacebookID == facebookID {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomers) FindByID(_ context.Context, id uint) (*models.Customer, error) {
	for _, c := range f.rows {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomers) Create(ctx context.Context, customer *models.Customer) error {
	if existing, err := f.FindByFacebookID(ctx, customer.UserID, customer.FacebookID); err == nil {
		*customer = *existing
		return nil
	}
	f.seq++
	customer.ID = f.seq
	stored := *customer
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeCustomers) Update(_ context.Context, customer *models.Customer) error {
	for i, c := range f.rows {
		if c.ID == customer.ID {
			stored := *customer
			f.rows[i] = &stored
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCustomers) ListByUser(_ context.Context, userID uint, _, _ int) ([]models.Customer, error) {
	var out []models.Customer
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeConversations struct {
	seq       uint
	rows      []*models.Conversation
	customers *fakeCustomers
}

func (f *fakeConversations) FindByThread(_ context.Context, userID, customerID uint, threadID, platform string) (*models.Conversation, error) {
	for _, c := range f.rows {
		if c.UserID == userID && c.CustomerID == customerID &&
			c.PlatformConversationID == threadID && c.Platform == platform {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversations) FindByID(ctx context.Context, id uint) (*models.Conversation, error) {
	for _, c := range f.rows {
		if c.ID == id {
			if f.customers != nil {
				c.Customer, _ = f.customers.FindByID(ctx, c.CustomerID)
			}
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversations) Create(ctx context.Context, conversation *models.Conversation) error {
	if existing, err := f.FindByThread(ctx, conversation.UserID, conversation.CustomerID,
		conversation.PlatformConversationID, conversation.Platform); err == nil {
		*conversation = *existing
		return nil
	}
	f.seq++
	conversation.ID = f.seq
	stored := *conversation
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeConversations) UpdateLastMessage(_ context.Context, id uint, content string, at time.Time) error {
	for _, c := range f.rows {
		if c.ID == id {
			c.LastMessage = content
			c.LastMessageAt = at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeConversations) UpdateStatus(_ context.Context, id uint, status string) error {
	for _, c := range f.rows {
		if c.ID == id {
			c.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeConversations) UpdateAnalysis(_ context.Context, id uint, intent, sentiment string, purchaseProbability float64, urgency string) error {
	for _, c := range f.rows {
		if c.ID == id {
			c.Intent, c.Sentiment, c.PurchaseProbability, c.Urgency = intent, sentiment, purchaseProbability, urgency
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeConversations) ListByUser(_ context.Context, userID uint, _ repository.ConversationFilter, _, _ int) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeMessages struct {
	seq         uint
	rows        []*models.Message
	attachments []*models.MessageAttachment
}

func (f *fakeMessages) FindByPlatformID(_ context.Context, conversationID uint, platformMessageID string) (*models.Message, error) {
	for _, m := range f.rows {
		if m.ConversationID == conversationID && m.PlatformMessageID == platformMessageID {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeMessages) Create(_ context.Context, message *models.Message) error {
	f.seq++
	message.ID = f.seq
	stored := *message
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeMessages) CreateAttachment(_ context.Context, attachment *models.MessageAttachment) error {
	stored := *attachment
	f.attachments = append(f.attachments, &stored)
	return nil
}

func (f *fakeMessages) ListByConversation(_ context.Context, conversationID uint, _, _ int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.rows {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessages) CountByConversation(_ context.Context, conversationID uint) (int64, error) {
	var count int64
	for _, m := range f.rows {
		if m.ConversationID == conversationID {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessages) MarkReadUpTo(_ context.Context, conversationID uint, watermark time.Time) (int64, error) {
	var updated int64
	for _, m := range f.rows {
		if m.ConversationID == conversationID && !m.SentAt.After(watermark) && m.ReadAt == nil {
			w := watermark
			m.ReadAt = &w
			updated++
		}
	}
	return updated, nil
}

func (f *fakeMessages) MarkDelivered(_ context.Context, conversationID uint, platformMessageID string, deliveredAt time.Time) (int64, error) {
	for _, m := range f.rows {
		if m.ConversationID == conversationID && m.PlatformMessageID == platformMessageID && m.DeliveredAt == nil {
			d := deliveredAt
			m.DeliveredAt = &d
			return 1, nil
		}
	}
	return 0, nil
}

type fakeIntegrations struct {
	rows []*models.Integration
}

func (f *fakeIntegrations) FindActiveByPage(_ context.Context, platform, pageID string) (*models.Integration, error) {
	for _, i := range f.rows {
		if i.Platform == platform && i.PlatformPageID == pageID && i.IsActive {
			return i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIntegrations) FindActiveForUser(_ context.Context, userID uint, platform, pageID string) (*models.Integration, error) {
	for _, i := range f.rows {
		if i.UserID == userID && i.Platform == platform && i.PlatformPageID == pageID && i.IsActive {
			return i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIntegrations) FindByID(_ context.Context, id uint) (*models.Integration, error) {
	for _, i := range f.rows {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIntegrations) FindByUserAndPage(_ context.Context, userID uint, platform, pageID string) (*models.Integration, error) {
	for _, i := range f.rows {
		if i.UserID == userID && i.Platform == platform && i.PlatformPageID == pageID {
			return i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIntegrations) Create(_ context.Context, integration *models.Integration) error {
	f.rows = append(f.rows, integration)
	return nil
}

func (f *fakeIntegrations) Update(_ context.Context, _ *models.Integration) error { return nil }

func (f *fakeIntegrations) SetActive(_ context.Context, id uint, active bool) error {
	for _, i := range f.rows {
		if i.ID == id {
			i.IsActive = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeIntegrations) ListByUser(_ context.Context, userID uint) ([]models.Integration, error) {
	var out []models.Integration
	for _, i := range f.rows {
		if i.UserID == userID {
			out = append(out, *i)
		}
	}
	return out, nil
}

type fakeGateway struct {
	sent   []string
	seen   int
	typing int
	err    error
}

func (f *fakeGateway) MarkSeen(_ context.Context, _, _ string) error {
	f.seen++
	return nil
}

func (f *fakeGateway) SendTypingIndicator(_ context.Context, _, _ string, _ bool) error {
	f.typing++
	return nil
}

func (f *fakeGateway) SendMessage(_ context.Context, _, recipientID, text string) (*facebook.SendMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, text)
	return &facebook.SendMessageResponse{RecipientID: recipientID, MessageID: "sent-m1"}, nil
}

type staticProfiles struct{ name string }

func (s staticProfiles) GetName(_ context.Context, _, _ string) string { return s.name }

type fixture struct {
	customers     *fakeCustomers
	conversations *fakeConversations
	messages      *fakeMessages
	integrations  *fakeIntegrations
	gateway       *fakeGateway
	engine        *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	customers := &fakeCustomers{}
	conversations := &fakeConversations{customers: customers}
	messages := &fakeMessages{}
	integrations := &fakeIntegrations{
		rows: []*models.Integration{{
			ID:             1,
			UserID:         1,
			Platform:       models.PlatformFacebook,
			PlatformPageID: "p1",
			AccessToken:    "page-token",
			IsActive:       true,
		}},
	}
	gateway := &fakeGateway{}

	engine := NewEngine(customers, conversations, messages, integrations,
		gateway, staticProfiles{}, nil, log)

	return &fixture{
		customers:     customers,
		conversations: conversations,
		messages:      messages,
		integrations:  integrations,
		gateway:       gateway,
		engine:        engine,
	}
}

func inboundEvent(mid, text string, at time.Time) facebook.Event {
	return facebook.Event{
		Kind:              facebook.EventIncomingMessage,
		PageID:            "p1",
		SenderID:          "u1",
		RecipientID:       "p1",
		PlatformMessageID: mid,
		Text:              text,
		SentAt:            at,
	}
}

func TestProcessEventCreatesThread(t *testing.T) {
	f := newFixture(t)
	sentAt := time.UnixMilli(1700000000000)

	err := f.engine.ProcessEvent(context.Background(), inboundEvent("m1", "Hello", sentAt))
	require.NoError(t, err)

	require.Len(t, f.customers.rows, 1)
	customer := f.customers.rows[0]
	assert.Equal(t, "u1", customer.FacebookID)
	assert.Equal(t, uint(1), customer.UserID)
	assert.Equal(t, "Facebook User u1", customer.Name)

	require.Len(t, f.conversations.rows, 1)
	conversation := f.conversations.rows[0]
	assert.Equal(t, "p1", conversation.PlatformConversationID)
	assert.Equal(t, models.ConversationOpen, conversation.Status)
	assert.Equal(t, "Hello", conversation.LastMessage)
	assert.Equal(t, sentAt, conversation.LastMessageAt)

	require.Len(t, f.messages.rows, 1)
	message := f.messages.rows[0]
	assert.Equal(t, "Hello", message.Content)
	assert.Equal(t, models.SenderCustomer, message.SenderType)
	assert.Equal(t, sentAt, message.SentAt)
}

func TestDuplicateEventIsNoOp(t *testing.T) {
	f := newFixture(t)
	ev := inboundEvent("m1", "Hello", time.UnixMilli(1700000000000))

	require.NoError(t, f.engine.ProcessEvent(context.Background(), ev))
	require.NoError(t, f.engine.ProcessEvent(context.Background(), ev))

	count, err := f.messages.CountByConversation(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResolveFindOrCreateStability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1, err := f.engine.ResolveCustomer(ctx, 1, "u1", "tok")
	require.NoError(t, err)
	c2, err := f.engine.ResolveCustomer(ctx, 1, "u1", "tok")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)

	v1, err := f.engine.ResolveConversation(ctx, 1, c1.ID, "p1", models.PlatformFacebook)
	require.NoError(t, err)
	v2, err := f.engine.ResolveConversation(ctx, 1, c2.ID, "p1", models.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, v2.ID)

	assert.Len(t, f.customers.rows, 1)
	assert.Len(t, f.conversations.rows, 1)
}

func TestResolveCustomerUsesProfileName(t *testing.T) {
	f := newFixture(t)
	f.engine.profiles = staticProfiles{name: "Jane Roe"}

	customer, err := f.engine.ResolveCustomer(context.Background(), 1, "u9", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", customer.Name)
}

func TestReadReceiptMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sentAt := time.UnixMilli(1700000000000)

	require.NoError(t, f.engine.ProcessEvent(ctx, inboundEvent("m1", "Hello", sentAt)))

	conversation := f.conversations.rows[0]
	watermark := sentAt.Add(time.Second)
	require.NoError(t, f.engine.ApplyReadReceipt(ctx, conversation, watermark))

	message := f.messages.rows[0]
	require.NotNil(t, message.ReadAt)
	assert.Equal(t, watermark, *message.ReadAt)

	// an older watermark never rewinds readAt
	require.NoError(t, f.engine.ApplyReadReceipt(ctx, conversation, sentAt.Add(-time.Second)))
	assert.Equal(t, watermark, *message.ReadAt)
}

func TestDeliveryReceiptPartialTolerance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sentAt := time.UnixMilli(1700000000000)

	require.NoError(t, f.engine.ProcessEvent(ctx, inboundEvent("m1", "Hello", sentAt)))

	conversation := f.conversations.rows[0]
	deliveredAt := sentAt.Add(500 * time.Millisecond)
	err := f.engine.ApplyDeliveryReceipt(ctx, conversation, []string{"m1", "unknown"}, deliveredAt)
	require.NoError(t, err)

	message := f.messages.rows[0]
	require.NotNil(t, message.DeliveredAt)
	assert.Equal(t, deliveredAt, *message.DeliveredAt)
}

func TestReceiptForUnknownThreadIsDropped(t *testing.T) {
	f := newFixture(t)

	err := f.engine.ProcessEvent(context.Background(), facebook.Event{
		Kind:      facebook.EventReadReceipt,
		PageID:    "p1",
		SenderID:  "stranger",
		Watermark: time.Now(),
	})
	require.NoError(t, err)
	assert.Empty(t, f.messages.rows)
}

func TestSendReplyPersistsAfterSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.ProcessEvent(ctx, inboundEvent("m1", "Hello", time.UnixMilli(1700000000000))))

	message, err := f.engine.SendReply(ctx, 1, 7, "How can I help?")
	require.NoError(t, err)
	assert.Equal(t, "sent-m1", message.PlatformMessageID)
	assert.Equal(t, models.SenderAgent, message.SenderType)
	assert.Equal(t, []string{"How can I help?"}, f.gateway.sent)
	assert.Equal(t, "How can I help?", f.conversations.rows[0].LastMessage)
	assert.Equal(t, 1, f.gateway.seen)
}

func TestNotifyTypingSwallowsLookupFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.NotifyTyping(ctx, 42, true) // unknown conversation, no panic
	assert.Zero(t, f.gateway.typing)

	require.NoError(t, f.engine.ProcessEvent(ctx, inboundEvent("m1", "Hello", time.UnixMilli(1700000000000))))
	f.engine.NotifyTyping(ctx, 1, true)
	assert.Equal(t, 1, f.gateway.typing)
}

func TestSendReplyGatewayFailureLeavesNoState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.ProcessEvent(ctx, inboundEvent("m1", "Hello", time.UnixMilli(1700000000000))))
	f.gateway.err = errors.New("platform is down")

	_, err := f.engine.SendReply(ctx, 1, 7, "How can I help?")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	count, _ := f.messages.CountByConversation(ctx, 1)
	assert.Equal(t, int64(1), count) // only the inbound message
}

func TestSendReplyWithoutIntegration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.ProcessEvent(ctx, inboundEvent("m1", "Hello", time.UnixMilli(1700000000000))))
	f.integrations.rows[0].IsActive = false

	_, err := f.engine.SendReply(ctx, 1, 7, "How can I help?")
	require.ErrorIs(t, err, ErrNotFound)

	count, _ := f.messages.CountByConversation(ctx, 1)
	assert.Equal(t, int64(1), count)
}

func TestSendReplyUnknownConversation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SendReply(context.Background(), 42, 7, "hi")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.messages.rows)
}

func TestEventForUnknownPageIsDropped(t *testing.T) {
	f := newFixture(t)

	ev := inboundEvent("m1", "Hello", time.Now())
	ev.PageID = "unconnected"
	require.NoError(t, f.engine.ProcessEvent(context.Background(), ev))
	assert.Empty(t, f.customers.rows)
}

func TestIncomingMessageStoresAttachments(t *testing.T) {
	f := newFixture(t)
	ev := inboundEvent("m1", "", time.UnixMilli(1700000000000))
	ev.Attachments = []facebook.NormalizedAttachment{
		{Type: "image", URL: "https://cdn.example.com/a.jpg"},
		{Type: "file", URL: ""},
	}

	require.NoError(t, f.engine.ProcessEvent(context.Background(), ev))
	require.Len(t, f.messages.attachments, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", f.messages.attachments[0].URL)
	assert.Equal(t, "", f.messages.attachments[1].URL)
}
