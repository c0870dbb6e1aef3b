package models

// SubscriptionModel is a visitor's request to be mailed about new comments on
// one thread. It only receives mail once Active is set through the opt-in link.
type SubscriptionModel struct {
	Base
	Source      string `json:"source"   gorm:"size:64;not null;uniqueIndex:idx_subscription_thread_email,priority:1"`
	Parent      uint   `json:"parent"   gorm:"not null;uniqueIndex:idx_subscription_thread_email,priority:2"`
	Email       string `json:"email"    gorm:"size:255;not null;uniqueIndex:idx_subscription_thread_email,priority:3"`
	Name        string `json:"name"     gorm:"size:64"`
	URL         string `json:"url"      gorm:"size:2048"`
	AddedOn     int64  `json:"added_on" gorm:"not null;index"`
	Active      bool   `json:"active"   gorm:"not null;default:false;index"`
	TokenRemove string `json:"-"        gorm:"size:32;not null;uniqueIndex"`
}

func (SubscriptionModel) TableName() string { return "comment_subscriptions" }
