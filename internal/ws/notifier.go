package ws

import (
	"time"

	"omnichan/backend/internal/models"
)

// SyncNotifier forwards applied sync outcomes to the account's live stream
type SyncNotifier struct {
	hub *Hub
}

func NewSyncNotifier(hub *Hub) *SyncNotifier {
	return &SyncNotifier{hub: hub}
}

func (n *SyncNotifier) MessageReceived(conversation *models.Conversation, message *models.Message) {
	n.hub.Publish(conversation.UserID, StreamEvent{
		Type:           EventMessageReceived,
		ConversationID: conversation.ID,
		Payload:        message,
	})
}

func (n *SyncNotifier) MessageSent(conversation *models.Conversation, message *models.Message) {
	n.hub.Publish(conversation.UserID, StreamEvent{
		Type:           EventMessageSent,
		ConversationID: conversation.ID,
		Payload:        message,
	})
}

func (n *SyncNotifier) ReceiptApplied(conversation *models.Conversation, kind string, watermark time.Time) {
	n.hub.Publish(conversation.UserID, StreamEvent{
		Type:           EventReceiptApplied,
		ConversationID: conversation.ID,
		Payload: map[string]interface{}{
			"kind":      kind,
			"watermark": watermark,
		},
	})
}
