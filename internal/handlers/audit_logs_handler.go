package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/httpresp"
	"github.com/wemaster/booking-core/internal/models"
)

// ======================================================
// HANDLER
// ======================================================

// AuditLogsHandler reads the trail the audit_log sink writes. Platform
// staff only.
type AuditLogsHandler struct {
	db *gorm.DB
}

func NewAuditLogsHandler(db *gorm.DB) *AuditLogsHandler {
	return &AuditLogsHandler{db: db}
}

func (h *AuditLogsHandler) List(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	entityID, ok := optionalUUID(c, "entity_id", c.Query("entity_id"))
	if !ok {
		return
	}

	page, limit := pageQuery(c)

	// --------------------------------------------------
	// Optional filters
	// --------------------------------------------------

	q := h.db.WithContext(c.Request.Context()).Model(&models.AuditLog{})

	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	if entity := c.Query("entity"); entity != "" {
		q = q.Where("entity = ?", entity)
	}

	if entityID != nil {
		q = q.Where("entity_id = ?", *entityID)
	}

	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}

	if to != nil {
		q = q.Where("created_at < ?", *to)
	}

	// Count and listing each get their own statement.
	q = q.Session(&gorm.Session{})

	// --------------------------------------------------
	// Total
	// --------------------------------------------------

	var total int64
	if err := q.Count(&total).Error; err != nil {
		httperr.Internal(c, "audit_count_failed", "failed to count audit logs")
		return
	}

	// --------------------------------------------------
	// Listing
	// --------------------------------------------------

	logs := []models.AuditLog{}
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error; err != nil {

		httperr.Internal(c, "audit_list_failed", "failed to list audit logs")
		return
	}

	httpresp.Page(c, logs, total, page, limit)
}
