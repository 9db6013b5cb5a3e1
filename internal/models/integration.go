package models

import (
	"time"
)

// Supported platforms
const (
	PlatformFacebook = "facebook"
)

// Integration binds an owning account to one platform page/channel.
// AccessToken is stored encrypted; use the secrets package to decrypt
// before handing it to the platform gateway.
type Integration struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index:idx_integrations_user_page" json:"user_id"`
	Platform         string    `gorm:"index:idx_integrations_user_page" json:"platform"`
	PlatformPageID   string    `gorm:"index:idx_integrations_user_page;index" json:"platform_page_id"`
	PlatformPageName string    `json:"platform_page_name"`
	AccessToken      string    `json:"-"` // encrypted at rest
	IsActive         bool      `gorm:"default:true;index" json:"is_active"`
	LastSyncAt       time.Time `json:"last_sync_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ConnectFacebookRequest is the request structure for the Facebook connect flow
type ConnectFacebookRequest struct {
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required"`
}
