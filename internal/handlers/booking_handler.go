package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/dto"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/httpresp"
	"github.com/wemaster/booking-core/internal/middleware"
	ucBooking "github.com/wemaster/booking-core/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingUseCases struct {
	CreateSlot        *ucBooking.CreateSlot
	ListFreeSlots     *ucBooking.ListFreeSlots
	CreateCourse      *ucBooking.CreateCourse
	QuoteCourse       *ucBooking.QuoteCourse
	Create            *ucBooking.CreateBooking
	Confirm           *ucBooking.ConfirmBooking
	Cancel            *ucBooking.CancelBooking
	Get               *ucBooking.GetBooking
	List              *ucBooking.ListBookings
	RequestReschedule *ucBooking.RequestReschedule
	ApproveReschedule *ucBooking.ApproveReschedule
	RejectReschedule  *ucBooking.RejectReschedule
}

type BookingHandler struct {
	uc       BookingUseCases
	currency string
}

func NewBookingHandler(uc BookingUseCases, currency string) *BookingHandler {
	return &BookingHandler{uc: uc, currency: currency}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateSlotRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type CreateCourseRequest struct {
	Title        string `json:"title" binding:"required"`
	Type         string `json:"type" binding:"required"`
	BasePrice    int64  `json:"base_price" binding:"required"`
	LessonsCount int    `json:"lessons_count"`
}

type CreateBookingRequest struct {
	CourseID       string `json:"course_id" binding:"required"`
	SlotID         string `json:"slot_id" binding:"required"`
	GiftCardAmount int64  `json:"gift_card_amount"`
	CouponAmount   int64  `json:"coupon_amount"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type RescheduleRequest struct {
	ProposedSlotID string `json:"proposed_slot_id" binding:"required"`
	Reason         string `json:"reason"`
}

type RescheduleResponseRequest struct {
	Message *string `json:"message"`
}

// ======================================================
// SLOTS
// ======================================================

func (h *BookingHandler) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	tutor := middleware.CurrentActor(c)
	slot, err := h.uc.CreateSlot.Execute(c.Request.Context(), tutor.ID, req.StartTime, req.EndTime)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, slot)
}

func (h *BookingHandler) ListFreeSlots(c *gin.Context) {
	tutorID, ok := parseUUID(c, "tutor_id", c.Query("tutor_id"))
	if !ok {
		return
	}

	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}

	start := time.Now().UTC()
	if from != nil {
		start = *from
	}
	end := start.AddDate(0, 0, 14)
	if to != nil {
		end = *to
	}

	slots, err := h.uc.ListFreeSlots.Execute(c.Request.Context(), tutorID, start, end)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, slots)
}

// ======================================================
// COURSES
// ======================================================

func (h *BookingHandler) CreateCourse(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	tutor := middleware.CurrentActor(c)
	course, err := h.uc.CreateCourse.Execute(c.Request.Context(), ucBooking.CreateCourseInput{
		TutorID:      tutor.ID,
		Title:        req.Title,
		Type:         booking.CourseType(req.Type),
		BasePrice:    req.BasePrice,
		LessonsCount: req.LessonsCount,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, course)
}

func (h *BookingHandler) QuoteCourse(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	course, price, err := h.uc.QuoteCourse.Execute(c.Request.Context(), id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, dto.CourseQuoteDTO{Course: course, Price: price, Currency: h.currency})
}

// ======================================================
// BOOKINGS
// ======================================================

func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	courseID, ok := parseUUID(c, "course_id", req.CourseID)
	if !ok {
		return
	}
	slotID, ok := parseUUID(c, "slot_id", req.SlotID)
	if !ok {
		return
	}

	student := middleware.CurrentActor(c)
	b, err := h.uc.Create.Execute(c.Request.Context(), ucBooking.CreateBookingInput{
		StudentID:      student.ID,
		CourseID:       courseID,
		SlotID:         slotID,
		GiftCardAmount: req.GiftCardAmount,
		CouponAmount:   req.CouponAmount,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, b)
}

func (h *BookingHandler) List(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	page, limit := pageQuery(c)

	filter := booking.ListFilter{
		From:  from,
		To:    to,
		Page:  page,
		Limit: limit,
	}
	for _, s := range listQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, booking.Status(s))
	}

	items, total, err := h.uc.List.Execute(c.Request.Context(), middleware.CurrentActor(c), filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Page(c, dto.NewBookingList(items), total, page, limit)
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	b, err := h.uc.Get.Execute(c.Request.Context(), id, middleware.CurrentActor(c))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, b)
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	b, err := h.uc.Confirm.Execute(c.Request.Context(), id, middleware.CurrentActor(c).ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, b)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid_request", err.Error())
			return
		}
	}

	b, err := h.uc.Cancel.Execute(c.Request.Context(), id, middleware.CurrentActor(c), req.Reason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, b)
}

// ======================================================
// RESCHEDULES
// ======================================================

func (h *BookingHandler) RequestReschedule(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}
	slotID, ok := parseUUID(c, "proposed_slot_id", req.ProposedSlotID)
	if !ok {
		return
	}

	rr, err := h.uc.RequestReschedule.Execute(c.Request.Context(), id, middleware.CurrentActor(c), slotID, req.Reason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, rr)
}

func (h *BookingHandler) ApproveReschedule(c *gin.Context) {
	h.answerReschedule(c, true)
}

func (h *BookingHandler) RejectReschedule(c *gin.Context) {
	h.answerReschedule(c, false)
}

func (h *BookingHandler) answerReschedule(c *gin.Context, approve bool) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RescheduleResponseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid_request", err.Error())
			return
		}
	}

	userID := middleware.CurrentActor(c).ID
	ctx := c.Request.Context()

	var err error
	var b any
	if approve {
		b, err = h.uc.ApproveReschedule.Execute(ctx, id, userID, req.Message)
	} else {
		b, err = h.uc.RejectReschedule.Execute(ctx, id, userID, req.Message)
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, b)
}
