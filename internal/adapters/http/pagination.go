package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// History page size bounds.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PaginatedResponse wraps a page of history records.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination is offset-based page metadata.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageFromQuery reads offset and limit, falling back to the defaults for
// negative offsets and limits outside 1..maxPageLimit.
func pageFromQuery(c *fiber.Ctx) Pagination {
	p := Pagination{
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", defaultPageLimit),
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

// linkHeader renders RFC 8288 first/prev/next/last links for path.
// prev and next are omitted on the first and last page.
func linkHeader(path string, p Pagination) string {
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, path, offset, p.Limit, rel)
	}

	last := 0
	if p.Total > p.Limit {
		last = p.Total - p.Limit
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(last, "last"))
	return strings.Join(links, ", ")
}
