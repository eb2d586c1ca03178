package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination is an offset/limit window over Total items.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageFromQuery reads ?offset= and ?limit=, clamping them to sane values.
func pageFromQuery(c *fiber.Ctx) Pagination {
	p := Pagination{Offset: c.QueryInt("offset", 0), Limit: c.QueryInt("limit", defaultPageLimit)}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

// links returns the RFC 8288 relations for the window, in first, prev,
// next, last order. prev and next are omitted at the edges.
func (p Pagination) links() map[string]int {
	last := p.Total - p.Limit
	if last < 0 {
		last = 0
	}
	rels := map[string]int{"first": 0, "last": last}
	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		rels["prev"] = prev
	}
	if p.Offset+p.Limit < p.Total {
		rels["next"] = p.Offset + p.Limit
	}
	return rels
}

// SetLinkHeaders adds the Link header for a paginated response on the
// current path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	rels := p.links()
	parts := make([]string, 0, len(rels))
	for _, rel := range []string{"first", "prev", "next", "last"} {
		off, ok := rels[rel]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, c.Path(), off, p.Limit, rel))
	}
	c.Set("Link", strings.Join(parts, ", "))
}
