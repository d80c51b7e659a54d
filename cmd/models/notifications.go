package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Push notification lifecycle statuses. The status only ever moves
// forward: draft -> sending -> sent.
const (
	NotificationStatusDraft   = "draft"
	NotificationStatusSending = "sending"
	NotificationStatusSent    = "sent"
)

// Audience segments a notification can target when no explicit user
// list is given.
const (
	AudienceAll      = "all"
	AudienceUsers    = "users"
	AudiencePartners = "partners"
	AudienceFree     = "free"
	AudiencePaid     = "paid"
)

type PushNotification struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Body           string         `gorm:"type:text;not null" json:"body"`
	ImageURL       string         `gorm:"size:500" json:"image_url,omitempty"`
	ActionType     string         `gorm:"size:50" json:"action_type"`
	ActionData     string         `gorm:"type:text" json:"action_data"`
	TargetUserIDs  pq.StringArray `gorm:"type:text[]" json:"target_user_ids,omitempty"`
	TargetAudience string         `gorm:"size:50;not null;default:all" json:"target_audience"`
	Status         string         `gorm:"size:20;not null;default:draft" json:"status"`
	SentCount      int            `gorm:"default:0" json:"sent_count"`
	FailedCount    int            `gorm:"default:0" json:"failed_count"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// UserDevice is a single registered push endpoint. Dispatch only ever
// considers active devices and may flip IsActive to false when the
// provider reports the token as permanently dead; it never flips it
// back.
type UserDevice struct {
	gorm.Model
	UserID      uint   `gorm:"not null;index;uniqueIndex:idx_user_token" json:"user_id"`
	DeviceToken string `gorm:"not null;uniqueIndex:idx_user_token" json:"device_token"`
	Platform    string `gorm:"size:20" json:"platform"`
	IsActive    bool   `gorm:"not null;default:true;index" json:"is_active"`
}

// CreateNotificationRequest is the admin-facing payload for drafting a
// push notification.
type CreateNotificationRequest struct {
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	ImageURL       string   `json:"image_url,omitempty"`
	ActionType     string   `json:"action_type,omitempty"`
	ActionData     string   `json:"action_data,omitempty"`
	TargetUserIDs  []string `json:"target_user_ids,omitempty"`
	TargetAudience string   `json:"target_audience,omitempty"`
}

// RegisterDeviceRequest registers or refreshes a device token.
type RegisterDeviceRequest struct {
	UserID      uint   `json:"user_id"`
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}
