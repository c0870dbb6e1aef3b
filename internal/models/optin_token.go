package models

// OptInTokenModel is a double opt-in confirmation token bound to an email
// address and a set of related records (table name -> record ids).
type OptInTokenModel struct {
	Base
	Identifier   string              `json:"identifier"    gorm:"size:40;not null;uniqueIndex"`
	Email        string              `json:"email"         gorm:"size:255;not null"`
	Related      map[string][]string `json:"related"       gorm:"type:text;serializer:json"`
	CreatedOn    int64               `json:"created_on"    gorm:"not null"`
	ConfirmedOn  int64               `json:"confirmed_on"  gorm:"not null;default:0"`
	ValidUntil   int64               `json:"valid_until"   gorm:"not null;index"`
	EmailSubject string              `json:"email_subject" gorm:"size:255"`
	EmailText    string              `json:"email_text"    gorm:"type:text"`
}

func (OptInTokenModel) TableName() string { return "opt_in_tokens" }
