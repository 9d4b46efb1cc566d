package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds validated pagination parameters
type Params struct {
	Page  int
	Limit int
}

// Meta describes one page of a listing in a response body.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Parse reads page and limit from the query string. Missing or out-of-range
// values fall back to the defaults; limit is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	return Params{
		Page:  queryInt(c, "page", DefaultPage, 0),
		Limit: queryInt(c, "limit", DefaultLimit, MaxLimit),
	}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta reports the page against a total row count.
func (p Params) Meta(total int64) Meta {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func queryInt(c *gin.Context, key string, fallback, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
