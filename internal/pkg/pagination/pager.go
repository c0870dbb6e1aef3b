package pagination

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/mx-space/comments/internal/pkg/response"
)

// ErrPageOutOfRange is returned by Validate for a page outside [1, PageCount].
var ErrPageOutOfRange = errors.New("pagination: page out of range")

// Pager splits a result set of a known size into numbered pages addressed by
// a query parameter, and renders a navigation fragment for it.
type Pager struct {
	total    int64
	perPage  int
	maxLinks int
	param    string
}

// New returns a pager. perPage <= 0 means a single page holding everything.
func New(total int64, perPage, maxLinks int, param string) *Pager {
	if maxLinks < 1 {
		maxLinks = 1
	}
	return &Pager{total: total, perPage: perPage, maxLinks: maxLinks, param: param}
}

// ParamKey derives the per-thread page parameter: "page_c" followed by the
// initial of every underscore-separated chunk of source (without a "tl_"
// prefix) and the parent id, e.g. ("tl_form_field", 12) -> "page_cff12".
func ParamKey(source string, parent uint) string {
	var b strings.Builder
	b.WriteString("page_c")
	for _, chunk := range strings.Split(strings.TrimPrefix(source, "tl_"), "_") {
		if chunk != "" {
			b.WriteString(chunk[:1])
		}
	}
	b.WriteString(strconv.FormatUint(uint64(parent), 10))
	return b.String()
}

// ParsePage reads a page query value. A missing value means page 1; a value
// that is not a number maps to 0, which Validate rejects.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPage
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func (p *Pager) Param() string { return p.param }
func (p *Pager) Total() int64  { return p.total }

// PageCount is max(ceil(total/perPage), 1).
func (p *Pager) PageCount() int {
	if p.perPage <= 0 || p.total <= 0 {
		return 1
	}
	return int((p.total + int64(p.perPage) - 1) / int64(p.perPage))
}

func (p *Pager) Validate(page int) error {
	if page < 1 || page > p.PageCount() {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, page, p.PageCount())
	}
	return nil
}

// Limit returns the page size, 0 when unpaged.
func (p *Pager) Limit() int {
	if p.perPage <= 0 {
		return 0
	}
	return p.perPage
}

func (p *Pager) Offset(page int) int {
	if p.perPage <= 0 || page < 1 {
		return 0
	}
	return (page - 1) * p.perPage
}

// Meta converts the pager state into the JSON pagination envelope.
func (p *Pager) Meta(page int) response.Pagination {
	size := p.perPage
	if size <= 0 {
		size = int(p.total)
	}
	return response.Pagination{
		Total:       p.total,
		CurrentPage: page,
		TotalPage:   p.PageCount(),
		Size:        size,
		HasNextPage: page < p.PageCount(),
	}
}

// Generate renders an HTML navigation fragment linking to each page around
// current, at most maxLinks numbered links wide. It returns "" when there is
// only one page.
func (p *Pager) Generate(baseURL string, current int) string {
	pages := p.PageCount()
	if pages <= 1 {
		return ""
	}

	first, last := p.window(current, pages)
	var b strings.Builder
	fmt.Fprintf(&b, `<nav class="pagination" aria-label="Pagination"><p>Page %d of %d</p><ul>`, current, pages)
	if current > 1 {
		p.writeLink(&b, baseURL, 1, "first", "First")
		p.writeLink(&b, baseURL, current-1, "previous", "Previous")
	}
	for i := first; i <= last; i++ {
		if i == current {
			fmt.Fprintf(&b, `<li><strong class="active">%d</strong></li>`, i)
			continue
		}
		p.writeLink(&b, baseURL, i, "link", strconv.Itoa(i))
	}
	if current < pages {
		p.writeLink(&b, baseURL, current+1, "next", "Next")
		p.writeLink(&b, baseURL, pages, "last", "Last")
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

func (p *Pager) window(current, pages int) (int, int) {
	if pages <= p.maxLinks {
		return 1, pages
	}
	first := current - p.maxLinks/2
	if first < 1 {
		first = 1
	}
	last := first + p.maxLinks - 1
	if last > pages {
		last = pages
		first = last - p.maxLinks + 1
	}
	return first, last
}

func (p *Pager) writeLink(b *strings.Builder, baseURL string, page int, class, label string) {
	fmt.Fprintf(b, `<li class="%s"><a href="%s" class="%s">%s</a></li>`,
		class, html.EscapeString(p.PageURL(baseURL, page)), class, label)
}

// PageURL returns baseURL with the page parameter set, keeping other query values.
func (p *Pager) PageURL(baseURL string, page int) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		sep := "?"
		if strings.Contains(baseURL, "?") {
			sep = "&"
		}
		return baseURL + sep + p.param + "=" + strconv.Itoa(page)
	}
	q := u.Query()
	q.Set(p.param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
