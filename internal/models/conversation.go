package models

import (
	"time"
)

// Conversation statuses
const (
	ConversationOpen     = "open"
	ConversationPending  = "pending"
	ConversationResolved = "resolved"
	ConversationClosed   = "closed"
)

// Conversation represents a thread between one customer and one owning
// account on one platform. At most one row exists per
// (user, customer, platform conversation, platform) tuple.
type Conversation struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	UserID                 uint      `gorm:"uniqueIndex:idx_conversations_thread" json:"user_id"`
	CustomerID             uint      `gorm:"uniqueIndex:idx_conversations_thread" json:"customer_id"`
	PlatformConversationID string    `gorm:"uniqueIndex:idx_conversations_thread" json:"platform_conversation_id"`
	Platform               string    `gorm:"uniqueIndex:idx_conversations_thread" json:"platform"`
	Status                 string    `gorm:"default:open;index" json:"status"`
	LastMessage            string    `json:"last_message"`
	LastMessageAt          time.Time `json:"last_message_at"`

	// AI-derived fields, written by the analysis service
	Intent              string  `json:"intent,omitempty"`
	Sentiment           string  `json:"sentiment,omitempty"`
	PurchaseProbability float64 `json:"purchase_probability,omitempty"`
	Urgency             string  `json:"urgency,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// UpdateConversationRequest is the request structure for updating conversation state
type UpdateConversationRequest struct {
	Status string `json:"status" binding:"required,oneof=open pending resolved closed"`
}
