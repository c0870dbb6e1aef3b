package comment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/pagination"
	"github.com/mx-space/comments/internal/pkg/response"
)

const datetimeLayout = "2006-01-02T15:04:05-07:00"

var insertTagEscaper = strings.NewReplacer("{{", "&#123;&#123;", "}}", "&#125;&#125;")

// CommentView is one published comment as rendered in a thread.
type CommentView struct {
	ID       string `json:"id"`
	Anchor   string `json:"anchor"`
	Class    string `json:"class"`
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Comment  string `json:"comment"`
	Date     int64  `json:"date"`
	Datetime string `json:"datetime"`
	AddReply bool   `json:"add_reply"`
	Reply    string `json:"reply,omitempty"`
	ReplyBy  string `json:"reply_by,omitempty"`
}

// Thread is a page of published comments.
type Thread struct {
	Comments      []CommentView        `json:"comments"`
	CommentsTotal int64                `json:"comments_total"`
	PageParam     string               `json:"page_param,omitempty"`
	Pagination    *response.Pagination `json:"pagination,omitempty"`
	Navigation    string               `json:"navigation,omitempty"`
}

// Listing reads published comments page by page.
type Listing struct {
	comments *CommentStore
	opts     Options
	loc      *time.Location
}

func NewListing(comments *CommentStore, opts Options) *Listing {
	return &Listing{comments: comments, opts: opts, loc: time.Local}
}

// Thread returns the requested page of a thread. rawPage is the value of the
// thread's page parameter; pageURL is used to build navigation links. A page
// outside the valid range yields ErrPageNotFound.
func (l *Listing) Thread(ctx context.Context, source string, parent uint, rawPage, pageURL string) (*Thread, error) {
	thread := &Thread{Comments: []CommentView{}}

	var limit, offset int
	if l.opts.PerPage > 0 {
		total, err := l.comments.CountPublished(ctx, source, parent)
		if err != nil {
			return nil, fmt.Errorf("count comments: %w", err)
		}
		pager := pagination.New(total, l.opts.PerPage, l.opts.MaxPaginationLinks, pagination.ParamKey(source, parent))
		page := pagination.ParsePage(rawPage)
		if err := pager.Validate(page); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPageNotFound, err)
		}
		limit, offset = pager.Limit(), pager.Offset(page)

		meta := pager.Meta(page)
		thread.Pagination = &meta
		thread.PageParam = pager.Param()
		thread.Navigation = pager.Generate(pageURL, page)
		thread.CommentsTotal = total
	}

	comments, err := l.comments.ListPublished(ctx, source, parent, l.opts.Descending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	for i := range comments {
		thread.Comments = append(thread.Comments, l.view(&comments[i], i, len(comments)))
	}
	if limit == 0 {
		thread.CommentsTotal = int64(len(comments))
	}
	return thread, nil
}

func (l *Listing) view(c *models.CommentModel, index, count int) CommentView {
	v := CommentView{
		ID:       c.ID,
		Anchor:   "c" + c.ID,
		Class:    rowClass(index, count),
		Name:     c.Name,
		Website:  c.Website,
		Comment:  strings.TrimSpace(insertTagEscaper.Replace(RestoreEntities(c.Comment))),
		Date:     c.Date,
		Datetime: time.Unix(c.Date, 0).In(l.loc).Format(datetimeLayout),
	}
	if c.AddReply && c.Reply != "" && c.Author != nil {
		v.AddReply = true
		v.Reply = insertTagEscaper.Replace(c.Reply)
		v.ReplyBy = memberName(c.Author)
	}
	return v
}

// rowClass marks the first and last row and alternates even and odd,
// counting from zero.
func rowClass(index, count int) string {
	classes := make([]string, 0, 3)
	if index == 0 {
		classes = append(classes, "first")
	}
	if index == count-1 {
		classes = append(classes, "last")
	}
	if index%2 == 0 {
		classes = append(classes, "even")
	} else {
		classes = append(classes, "odd")
	}
	return strings.Join(classes, " ")
}
