package liveclasses

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kavindurs8/studifynew-sub001/internal/middleware"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/response"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// CreateRequest is the body for POST /live-classes.
type CreateRequest struct {
	Title             string `json:"title" binding:"required"`
	Description       string `json:"description"`
	DurationMinutes   int    `json:"duration_minutes" binding:"required"`
	SubmitForApproval bool   `json:"submit_for_approval"`
}

// ScheduleRequest is the body for approve and reschedule.
type ScheduleRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"`
	AdminNotes  string `json:"admin_notes"`
}

// NotesRequest is the body for reject and cancel.
type NotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// Handler handles live class HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a live class handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /live-classes (teacher).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	teacherID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	lc, err := h.svc.Create(c.Request.Context(), CreateInput{
		TeacherID:         teacherID,
		Title:             req.Title,
		Description:       req.Description,
		DurationMinutes:   req.DurationMinutes,
		SubmitForApproval: req.SubmitForApproval,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, lc)
}

// List handles GET /live-classes. Teachers see their own classes; admins see all.
// Query ?status= filters by status.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if c.GetString(middleware.ContextUserRole) != string(models.RoleAdmin) {
		uid := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		f.TeacherID = &uid
	}
	if s := c.Query("status"); s != "" {
		status := models.LiveClassStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &status
	}
	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list live classes", zap.Error(err))
		response.Internal(c, "failed to list live classes")
		return
	}
	response.OK(c, list)
}

// AdminList handles GET /admin/live-classes. Defaults to the approval queue.
func (h *Handler) AdminList(c *gin.Context) {
	status := models.LiveClassStatus(c.DefaultQuery("status", string(models.LiveClassPendingApproval)))
	if !status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.svc.List(c.Request.Context(), ListFilter{Status: &status})
	if err != nil {
		h.logger.Error("list live classes", zap.Error(err))
		response.Internal(c, "failed to list live classes")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /live-classes/:id (owner or admin).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	lc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	uid := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if c.GetString(middleware.ContextUserRole) != string(models.RoleAdmin) && lc.TeacherID != uid {
		response.NotFound(c, ErrNotFound.Error())
		return
	}
	response.OK(c, lc)
}

// Approve handles POST /admin/live-classes/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	id, at, req, ok := h.bindSchedule(c)
	if !ok {
		return
	}
	lc, err := h.svc.Approve(c.Request.Context(), id, ApproveInput{AdminID: adminID(c), ScheduledAt: at, Notes: req.AdminNotes})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, lc)
}

// Reschedule handles POST /admin/live-classes/:id/reschedule.
func (h *Handler) Reschedule(c *gin.Context) {
	id, at, req, ok := h.bindSchedule(c)
	if !ok {
		return
	}
	lc, err := h.svc.Reschedule(c.Request.Context(), id, RescheduleInput{AdminID: adminID(c), ScheduledAt: at, Notes: req.AdminNotes})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, lc)
}

// Reject handles POST /admin/live-classes/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	id, req, ok := h.bindNotes(c)
	if !ok {
		return
	}
	lc, err := h.svc.Reject(c.Request.Context(), id, RejectInput{AdminID: adminID(c), Notes: req.AdminNotes})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, lc)
}

// Cancel handles POST /admin/live-classes/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, req, ok := h.bindNotes(c)
	if !ok {
		return
	}
	lc, err := h.svc.Cancel(c.Request.Context(), id, CancelInput{AdminID: adminID(c), Notes: req.AdminNotes})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, lc)
}

func (h *Handler) bindSchedule(c *gin.Context) (uuid.UUID, time.Time, ScheduleRequest, bool) {
	var req ScheduleRequest
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return id, time.Time{}, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return id, time.Time{}, req, false
	}
	at, err := parseTime(req.ScheduledAt)
	if err != nil {
		response.BadRequest(c, "invalid scheduled_at")
		return id, time.Time{}, req, false
	}
	return id, at, req, true
}

func (h *Handler) bindNotes(c *gin.Context) (uuid.UUID, NotesRequest, bool) {
	var req NotesRequest
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return id, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return id, req, false
	}
	return id, req, true
}

func adminID(c *gin.Context) uuid.UUID {
	return c.MustGet(middleware.ContextUserID).(uuid.UUID)
}

// fail maps workflow errors onto the response envelope. The message always carries the
// underlying error text.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		val  *ValidationError
		pre  *PreconditionError
		auth *zoom.AuthError
		prov *zoom.ProviderError
	)
	switch {
	case errors.As(err, &val):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.As(err, &pre):
		response.Conflict(c, err.Error())
	case errors.As(err, &auth), errors.As(err, &prov):
		h.logger.Error("meeting provider failure", zap.String("path", c.FullPath()), zap.Error(err))
		response.BadGateway(c, err.Error())
	default:
		h.logger.Error("live class action failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, err.Error())
	}
}
