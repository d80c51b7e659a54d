package models

import (
	"gorm.io/gorm"
)

// AIUsage tracks per-day assistant requests for free-tier rate limiting.
type AIUsage struct {
	gorm.Model
	UserID       uint   `gorm:"not null;index;uniqueIndex:idx_usage_day" json:"user_id"`
	UsageDate    string `gorm:"size:10;not null;uniqueIndex:idx_usage_day" json:"usage_date"` // YYYY-MM-DD
	RequestCount int    `gorm:"default:0" json:"request_count"`
}

type AIChatLog struct {
	gorm.Model
	UserID    uint   `gorm:"index" json:"user_id"`
	SessionID string `gorm:"size:36" json:"session_id"`
	Role      string `gorm:"size:20" json:"role"`
	Content   string `gorm:"type:text" json:"content"`
}
