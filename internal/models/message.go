package models

import (
	"time"
)

// Message sender kinds
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
	SenderSystem   = "system"
	SenderAI       = "ai"
)

// Message represents one unit of communication inside a conversation.
// PlatformMessageID is the platform's own id for the message and acts
// as the idempotency key for webhook re-deliveries.
type Message struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	// the (conversation_id, platform_message_id) idempotency key is a partial
	// unique index created manually at startup; a tag-declared index under the
	// same name would shadow it, so neither field names one here
	ConversationID    uint       `gorm:"index" json:"conversation_id"`
	PlatformMessageID string     `json:"platform_message_id"`
	SenderID          uint       `json:"sender_id"`
	SenderType        string     `json:"sender_type"` // customer, agent, system, ai
	Content           string     `json:"content"`
	SentAt            time.Time  `gorm:"index" json:"sent_at"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`

	Attachments []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

// MessageAttachment is a media reference owned by exactly one message.
// Created alongside the message and immutable thereafter.
type MessageAttachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"index" json:"message_id"`
	Type      string    `json:"type"` // image, video, audio, file
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
