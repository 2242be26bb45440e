package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/httpresp"
	"github.com/wemaster/booking-core/internal/middleware"
	ucAppeal "github.com/wemaster/booking-core/internal/usecase/appeal"
)

const maxEvidenceSize = 20 << 20

type AppealUseCases struct {
	Open            *ucAppeal.OpenAppeal
	Get             *ucAppeal.GetAppeal
	TutorRespond    *ucAppeal.TutorRespond
	StudentConfirm  *ucAppeal.StudentConfirm
	Withdraw        *ucAppeal.WithdrawAppeal
	AddEvidence     *ucAppeal.AddEvidence
	StartProcessing *ucAppeal.StartProcessing
	Resolve         *ucAppeal.PlatformResolve
}

type AppealHandler struct {
	uc AppealUseCases
}

func NewAppealHandler(uc AppealUseCases) *AppealHandler {
	return &AppealHandler{uc: uc}
}

type OpenAppealRequest struct {
	Reason  string `json:"reason" binding:"required,max=255"`
	Content string `json:"content"`
}

type TutorRespondRequest struct {
	Response       string `json:"response" binding:"required"`
	ProposedRefund *int64 `json:"proposed_refund"`
}

type StudentConfirmRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

type ResolveAppealRequest struct {
	Decision     string `json:"decision" binding:"required"`
	RefundAmount int64  `json:"refund_amount"`
	OverrideFee  bool   `json:"override_fee"`
	Response     string `json:"response"`
}

func (h *AppealHandler) Open(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req OpenAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	a, err := h.uc.Open.Execute(c.Request.Context(), bookingID, middleware.CurrentActor(c).ID, req.Reason, req.Content)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, a)
}

func (h *AppealHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	a, err := h.uc.Get.Execute(c.Request.Context(), id, middleware.CurrentActor(c))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, a)
}

func (h *AppealHandler) Respond(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req TutorRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	a, err := h.uc.TutorRespond.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID, req.Response, req.ProposedRefund)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, a)
}

func (h *AppealHandler) Confirm(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req StudentConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	a, err := h.uc.StudentConfirm.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID, *req.Accepted)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, a)
}

func (h *AppealHandler) Withdraw(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	a, err := h.uc.Withdraw.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, a)
}

// AddEvidence takes a multipart form with "type" and "file".
func (h *AppealHandler) AddEvidence(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEvidenceSize)

	header, err := c.FormFile("file")
	if err != nil {
		httperr.BadRequest(c, "missing_file", "file is required")
		return
	}

	f, err := header.Open()
	if err != nil {
		httperr.BadRequest(c, "invalid_file", err.Error())
		return
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		httperr.BadRequest(c, "invalid_file", err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}

	ev, err := h.uc.AddEvidence.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID, ucAppeal.EvidenceInput{
		Type:        appeal.EvidenceType(c.PostForm("type")),
		ContentType: contentType,
		Body:        body,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, ev)
}

// ======================================================
// PLATFORM
// ======================================================

func (h *AppealHandler) StartProcessing(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	a, err := h.uc.StartProcessing.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, a)
}

func (h *AppealHandler) Resolve(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req ResolveAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	a, err := h.uc.Resolve.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID, ucAppeal.ResolveInput{
		Decision:     appeal.Decision(req.Decision),
		RefundAmount: req.RefundAmount,
		OverrideFee:  req.OverrideFee,
		Response:     req.Response,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, a)
}
