package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func parseUUID(c *gin.Context, field, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		httperr.BadRequest(c, "invalid_request", field+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(c *gin.Context, field, raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, ok := parseUUID(c, field, raw)
	if !ok {
		return nil, false
	}
	return &id, true
}

// timeQuery accepts RFC 3339 or a bare date (UTC midnight).
func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true
	}

	httperr.BadRequest(c, "invalid_"+name, name+" must be RFC 3339 or YYYY-MM-DD")
	return nil, false
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page <= 0 {
		page = defaultPage
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit <= 0 {
		limit = defaultLimit
	}
	return page, min(limit, maxLimit)
}

// listQuery splits "a,b" and repeated ?k=a&k=b alike.
func listQuery(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
