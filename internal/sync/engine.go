package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omnichan/backend/internal/facebook"
	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/pkg/logger"
)

// PlatformGateway delivers outbound messages to the messaging platform.
// The Graph API client satisfies this; tests swap in a fake.
type PlatformGateway interface {
	SendMessage(ctx context.Context, accessToken, recipientID, text string) (*facebook.SendMessageResponse, error)
	MarkSeen(ctx context.Context, accessToken, recipientID string) error
	SendTypingIndicator(ctx context.Context, accessToken, recipientID string, on bool) error
}

// ProfileResolver resolves a display name for a platform user, returning ""
// when the profile cannot be fetched.
type ProfileResolver interface {
	GetName(ctx context.Context, accessToken, psid string) string
}

// TokenCipher decrypts integration access tokens stored at rest
type TokenCipher interface {
	Decrypt(ciphertext string) (string, error)
}

// Listener observes applied sync outcomes. Implementations must not block;
// the engine calls them inline on the event worker.
type Listener interface {
	MessageReceived(conversation *models.Conversation, message *models.Message)
	MessageSent(conversation *models.Conversation, message *models.Message)
	ReceiptApplied(conversation *models.Conversation, kind string, watermark time.Time)
}

// Engine applies normalized platform events to the store: it resolves
// customer and conversation identity, persists new messages exactly once,
// and advances read/delivery state. All mutations are conditional single-row
// updates; duplicate webhook deliveries are absorbed rather than rejected.
type Engine struct {
	customers     repository.CustomerRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	integrations  repository.IntegrationRepository
	gateway       PlatformGateway
	profiles      ProfileResolver
	cipher        TokenCipher
	listeners     []Listener
	log           *logger.Logger
}

func NewEngine(
	customers repository.CustomerRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	integrations repository.IntegrationRepository,
	gateway PlatformGateway,
	profiles ProfileResolver,
	cipher TokenCipher,
	log *logger.Logger,
) *Engine {
	return &Engine{
		customers:     customers,
		conversations: conversations,
		messages:      messages,
		integrations:  integrations,
		gateway:       gateway,
		profiles:      profiles,
		cipher:        cipher,
		log:           log,
	}
}

// AddListener registers an observer for applied events. Not safe to call
// after event processing has started.
func (e *Engine) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// ResolveCustomer finds the customer for a platform sender id, creating one
// on first contact. The created row gets the platform profile name when it
// can be fetched, otherwise a placeholder derived from the external id.
func (e *Engine) ResolveCustomer(ctx context.Context, userID uint, facebookID, accessToken string) (*models.Customer, error) {
	customer, err := e.customers.FindByFacebookID(ctx, userID, facebookID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("find customer", err)
	}

	name := ""
	if e.profiles != nil && accessToken != "" {
		name = e.profiles.GetName(ctx, accessToken, facebookID)
	}
	if name == "" {
		name = "Facebook User " + facebookID
	}

	customer = &models.Customer{
		UserID:     userID,
		FacebookID: facebookID,
		Name:       name,
	}
	if err := e.customers.Create(ctx, customer); err != nil {
		return nil, storageErr("create customer", err)
	}

	e.log.Info("New customer created",
		"customer_id", customer.ID,
		"facebook_id", facebookID,
		"user_id", userID)
	return customer, nil
}

// ResolveConversation finds the thread for a customer on a platform page,
// creating an open conversation on first contact.
func (e *Engine) ResolveConversation(ctx context.Context, userID, customerID uint, threadID, platform string) (*models.Conversation, error) {
	conversation, err := e.conversations.FindByThread(ctx, userID, customerID, threadID, platform)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("find conversation", err)
	}

	conversation = &models.Conversation{
		UserID:                 userID,
		CustomerID:             customerID,
		PlatformConversationID: threadID,
		Platform:               platform,
		Status:                 models.ConversationOpen,
		LastMessageAt:          time.Now(),
	}
	if err := e.conversations.Create(ctx, conversation); err != nil {
		return nil, storageErr("create conversation", err)
	}

	e.log.Info("New conversation created",
		"conversation_id", conversation.ID,
		"customer_id", customerID,
		"platform", platform)
	return conversation, nil
}

// ApplyIncomingMessage persists one inbound message. A duplicate delivery of
// an already-stored platform message id returns (nil, nil); that is normal
// platform retry traffic, not an error.
func (e *Engine) ApplyIncomingMessage(ctx context.Context, conversation *models.Conversation, customer *models.Customer, ev facebook.Event) (*models.Message, error) {
	_, err := e.messages.FindByPlatformID(ctx, conversation.ID, ev.PlatformMessageID)
	if err == nil {
		e.log.Debug("Duplicate message event skipped",
			"conversation_id", conversation.ID,
			"platform_message_id", ev.PlatformMessageID)
		return nil, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("check duplicate message", err)
	}

	message := &models.Message{
		ConversationID:    conversation.ID,
		PlatformMessageID: ev.PlatformMessageID,
		SenderID:          customer.ID,
		SenderType:        models.SenderCustomer,
		Content:           ev.Text,
		SentAt:            ev.SentAt,
	}
	if err := e.messages.Create(ctx, message); err != nil {
		return nil, storageErr("create message", err)
	}

	for _, att := range ev.Attachments {
		attachment := &models.MessageAttachment{
			MessageID: message.ID,
			Type:      att.Type,
			URL:       att.URL,
		}
		if err := e.messages.CreateAttachment(ctx, attachment); err != nil {
			return nil, storageErr("create attachment", err)
		}
		message.Attachments = append(message.Attachments, *attachment)
	}

	if err := e.conversations.UpdateLastMessage(ctx, conversation.ID, ev.Text, ev.SentAt); err != nil {
		return nil, storageErr("update conversation", err)
	}
	conversation.LastMessage = ev.Text
	conversation.LastMessageAt = ev.SentAt

	for _, l := range e.listeners {
		l.MessageReceived(conversation, message)
	}
	return message, nil
}

// ApplyReadReceipt marks every unread message sent at or before the
// watermark as read. Re-applying an old watermark never rewinds state.
func (e *Engine) ApplyReadReceipt(ctx context.Context, conversation *models.Conversation, watermark time.Time) error {
	updated, err := e.messages.MarkReadUpTo(ctx, conversation.ID, watermark)
	if err != nil {
		return storageErr("mark read", err)
	}

	e.log.Debug("Read receipt applied",
		"conversation_id", conversation.ID,
		"watermark", watermark,
		"messages_updated", updated)

	if updated > 0 {
		for _, l := range e.listeners {
			l.ReceiptApplied(conversation, "read", watermark)
		}
	}
	return nil
}

// ApplyDeliveryReceipt marks each listed message as delivered. Ids are
// processed independently; an unknown or failing id never blocks the rest.
func (e *Engine) ApplyDeliveryReceipt(ctx context.Context, conversation *models.Conversation, mids []string, deliveredAt time.Time) error {
	var errs []error
	var updated int64
	for _, mid := range mids {
		n, err := e.messages.MarkDelivered(ctx, conversation.ID, mid, deliveredAt)
		if err != nil {
			e.log.Error("Failed to mark message delivered",
				"conversation_id", conversation.ID,
				"platform_message_id", mid,
				"error", err)
			errs = append(errs, storageErr("mark delivered "+mid, err))
			continue
		}
		if n == 0 {
			e.log.Debug("Delivery receipt for unknown or already-delivered message",
				"conversation_id", conversation.ID,
				"platform_message_id", mid)
			continue
		}
		updated += n
	}

	if updated > 0 {
		for _, l := range e.listeners {
			l.ReceiptApplied(conversation, "delivered", deliveredAt)
		}
	}
	return errors.Join(errs...)
}

// NotifyTyping toggles the customer-facing typing indicator on a
// conversation. Best effort: any failure is logged and swallowed.
func (e *Engine) NotifyTyping(ctx context.Context, conversationID uint, on bool) {
	conversation, err := e.conversations.FindByID(ctx, conversationID)
	if err != nil {
		e.log.Debug("typing indicator skipped", "conversationId", conversationID, "error", err)
		return
	}
	integration, err := e.integrations.FindActiveForUser(ctx, conversation.UserID, conversation.Platform, conversation.PlatformConversationID)
	if err != nil {
		e.log.Debug("typing indicator skipped", "conversationId", conversationID, "error", err)
		return
	}
	accessToken, err := e.accessToken(integration)
	if err != nil {
		e.log.Debug("typing indicator skipped", "conversationId", conversationID, "error", err)
		return
	}
	if err := e.gateway.SendTypingIndicator(ctx, accessToken, conversation.Customer.FacebookID, on); err != nil {
		e.log.Debug("typing indicator failed", "conversationId", conversationID, "error", err)
	}
}

// SendReply delivers an agent reply through the platform and records it.
// The message row is written only after the platform accepted the send, so a
// gateway failure leaves no partial state.
func (e *Engine) SendReply(ctx context.Context, conversationID, senderUserID uint, text string) (*models.Message, error) {
	conversation, err := e.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("conversation %d: %w", conversationID, ErrNotFound)
		}
		return nil, storageErr("find conversation", err)
	}

	integration, err := e.integrations.FindActiveForUser(ctx, conversation.UserID, conversation.Platform, conversation.PlatformConversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("no active %s integration for page %s: %w",
				conversation.Platform, conversation.PlatformConversationID, ErrNotFound)
		}
		return nil, storageErr("find integration", err)
	}

	accessToken, err := e.accessToken(integration)
	if err != nil {
		return nil, err
	}

	// mark-seen is cosmetic; a failure must not block the reply
	if err := e.gateway.MarkSeen(ctx, accessToken, conversation.Customer.FacebookID); err != nil {
		e.log.Debug("mark seen failed", "conversationId", conversation.ID, "error", err)
	}

	resp, err := e.gateway.SendMessage(ctx, accessToken, conversation.Customer.FacebookID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	now := time.Now()
	message := &models.Message{
		ConversationID:    conversation.ID,
		PlatformMessageID: resp.MessageID,
		SenderID:          senderUserID,
		SenderType:        models.SenderAgent,
		Content:           text,
		SentAt:            now,
	}
	if err := e.messages.Create(ctx, message); err != nil {
		return nil, storageErr("create message", err)
	}
	if err := e.conversations.UpdateLastMessage(ctx, conversation.ID, text, now); err != nil {
		return nil, storageErr("update conversation", err)
	}
	conversation.LastMessage = text
	conversation.LastMessageAt = now

	for _, l := range e.listeners {
		l.MessageSent(conversation, message)
	}
	return message, nil
}

// ProcessEvent routes one normalized webhook event. Events for pages with no
// active integration, and receipts for threads never seen before, are
// dropped with a log line rather than an error; the platform offers no way
// to refuse them.
func (e *Engine) ProcessEvent(ctx context.Context, ev facebook.Event) error {
	integration, err := e.integrations.FindActiveByPage(ctx, models.PlatformFacebook, ev.PageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.log.Warn("Event for page with no active integration", "page_id", ev.PageID)
			return nil
		}
		return storageErr("find integration", err)
	}

	switch ev.Kind {
	case facebook.EventIncomingMessage:
		accessToken, err := e.accessToken(integration)
		if err != nil {
			return err
		}
		customer, err := e.ResolveCustomer(ctx, integration.UserID, ev.SenderID, accessToken)
		if err != nil {
			return err
		}
		conversation, err := e.ResolveConversation(ctx, integration.UserID, customer.ID, ev.PageID, models.PlatformFacebook)
		if err != nil {
			return err
		}
		_, err = e.ApplyIncomingMessage(ctx, conversation, customer, ev)
		return err

	case facebook.EventReadReceipt, facebook.EventDeliveryReceipt:
		conversation, err := e.lookupThread(ctx, integration.UserID, ev.SenderID, ev.PageID)
		if err != nil || conversation == nil {
			return err
		}
		if ev.Kind == facebook.EventReadReceipt {
			return e.ApplyReadReceipt(ctx, conversation, ev.Watermark)
		}
		return e.ApplyDeliveryReceipt(ctx, conversation, ev.Mids, ev.Watermark)
	}

	return nil
}

// lookupThread finds an existing conversation for a receipt event. Receipts
// never create rows; (nil, nil) means there is nothing to mark.
func (e *Engine) lookupThread(ctx context.Context, userID uint, senderID, pageID string) (*models.Conversation, error) {
	customer, err := e.customers.FindByFacebookID(ctx, userID, senderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.log.Debug("Receipt for unknown customer", "facebook_id", senderID, "page_id", pageID)
			return nil, nil
		}
		return nil, storageErr("find customer", err)
	}

	conversation, err := e.conversations.FindByThread(ctx, userID, customer.ID, pageID, models.PlatformFacebook)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.log.Debug("Receipt for unknown conversation", "customer_id", customer.ID, "page_id", pageID)
			return nil, nil
		}
		return nil, storageErr("find conversation", err)
	}
	return conversation, nil
}

func (e *Engine) accessToken(integration *models.Integration) (string, error) {
	if e.cipher == nil {
		return integration.AccessToken, nil
	}
	token, err := e.cipher.Decrypt(integration.AccessToken)
	if err != nil {
		return "", fmt.Errorf("decrypting access token for integration %d: %w", integration.ID, err)
	}
	return token, nil
}
