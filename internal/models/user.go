package models

// UserModel is a registered member or site administrator. Members can comment
// without typing their name and address; admins moderate and reply.
type UserModel struct {
	Base
	Username string `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Name     string `json:"name"     gorm:"size:64"`
	Mail     string `json:"mail"     gorm:"size:255"`
	URL      string `json:"url"      gorm:"size:128"`
	IsAdmin  bool   `json:"is_admin" gorm:"not null;default:false"`
}

func (UserModel) TableName() string { return "users" }
