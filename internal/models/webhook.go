package models

import "time"

// WebhookModel defines an outbound webhook endpoint.
type WebhookModel struct {
	Base
	PayloadURL string      `json:"payload_url" gorm:"size:1024;not null"`
	Events     StringArray `json:"events"      gorm:"type:text"`
	Enabled    bool        `json:"enabled"     gorm:"not null;default:true"`
	Secret     string      `json:"-"           gorm:"size:128;not null"`
}

func (WebhookModel) TableName() string { return "webhooks" }

// WebhookEventModel is the audit trail of webhook deliveries.
type WebhookEventModel struct {
	Base
	HookID    string    `json:"hook_id"   gorm:"size:36;index;not null"`
	Event     string    `json:"event"     gorm:"size:64;not null"`
	Headers   string    `json:"headers"   gorm:"type:text"`
	Payload   string    `json:"payload"   gorm:"type:text"`
	Response  string    `json:"response"  gorm:"type:text"`
	Success   bool      `json:"success"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

func (WebhookEventModel) TableName() string { return "webhook_events" }
