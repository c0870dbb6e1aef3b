package models

// CommentModel is a visitor comment attached to a content item identified by
// (Source, Parent).
type CommentModel struct {
	Base
	Source    string `json:"source"    gorm:"size:64;not null;index:idx_comment_thread,priority:1"`
	Parent    uint   `json:"parent"    gorm:"not null;index:idx_comment_thread,priority:2"`
	Name      string `json:"name"      gorm:"size:64;not null"`
	Email     string `json:"email"     gorm:"size:255;not null"`
	Website   string `json:"website"   gorm:"size:255"`
	Comment   string `json:"comment"   gorm:"type:text;not null"`
	Member    string `json:"member"    gorm:"size:36;index"` // empty for anonymous visitors
	IP        string `json:"ip"        gorm:"size:64"`
	Date      int64  `json:"date"      gorm:"not null;index"` // epoch seconds
	Tstamp    int64  `json:"tstamp"`
	Published bool   `json:"published" gorm:"not null;default:false;index"`
	Notified  bool   `json:"notified"  gorm:"not null;default:false"`

	AddReply bool       `json:"add_reply" gorm:"not null;default:false"`
	Reply    string     `json:"reply"     gorm:"type:text"`
	AuthorID *string    `json:"author_id" gorm:"size:36"`
	Author   *UserModel `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

func (CommentModel) TableName() string { return "comments" }
