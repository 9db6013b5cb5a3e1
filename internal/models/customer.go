package models

import (
	"time"
)

// Customer represents an end-user of a monitored business, identified per
// owning account by their platform-specific external id.
type Customer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_customers_user_facebook" json:"user_id"`
	FacebookID string    `gorm:"uniqueIndex:idx_customers_user_facebook" json:"facebook_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Segment    string    `json:"segment,omitempty" gorm:"default:new"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateCustomerRequest is the request structure for updating customer profile fields
type UpdateCustomerRequest struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty" binding:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Segment string `json:"segment,omitempty"`
}
