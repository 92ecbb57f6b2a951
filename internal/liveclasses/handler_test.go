package liveclasses

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavindurs8/studifynew-sub001/internal/middleware"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/response"
)

func newRouter(h *harness, userID uuid.UUID, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, string(role))
		c.Next()
	})
	hd := NewHandler(h.svc, nil)
	r.POST("/live-classes", hd.Create)
	r.GET("/live-classes", hd.List)
	r.GET("/live-classes/:id", hd.GetByID)
	r.GET("/admin/live-classes", hd.AdminList)
	r.POST("/admin/live-classes/:id/approve", hd.Approve)
	r.POST("/admin/live-classes/:id/reject", hd.Reject)
	r.POST("/admin/live-classes/:id/reschedule", hd.Reschedule)
	r.POST("/admin/live-classes/:id/cancel", hd.Cancel)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Body) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env response.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHandler_AdminActions(t *testing.T) {
	future := fixedNow.Add(24 * time.Hour).Format(time.RFC3339)

	tests := []struct {
		name       string
		setup      func(h *harness) *models.LiveClassSession
		action     string
		body       interface{}
		wantStatus int
		wantErr    string
	}{
		{
			name:       "approve",
			setup:      pending,
			action:     "approve",
			body:       gin.H{"scheduled_at": future, "admin_notes": "welcome"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "approve bad time format",
			setup:      pending,
			action:     "approve",
			body:       gin.H{"scheduled_at": "tomorrow"},
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid scheduled_at",
		},
		{
			name:       "approve past time",
			setup:      pending,
			action:     "approve",
			body:       gin.H{"scheduled_at": fixedNow.Add(-time.Hour).Format(time.RFC3339)},
			wantStatus: http.StatusBadRequest,
			wantErr:    "scheduled_at: must be in the future",
		},
		{
			name:       "approve scheduled class",
			setup:      scheduled,
			action:     "approve",
			body:       gin.H{"scheduled_at": future},
			wantStatus: http.StatusConflict,
			wantErr:    "cannot approve a live class that is scheduled (requires pending_approval)",
		},
		{
			name:       "reject without notes",
			setup:      pending,
			action:     "reject",
			body:       gin.H{},
			wantStatus: http.StatusBadRequest,
			wantErr:    "admin_notes: is required",
		},
		{
			name:       "reject",
			setup:      pending,
			action:     "reject",
			body:       gin.H{"admin_notes": "not a fit"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "reschedule",
			setup:      scheduled,
			action:     "reschedule",
			body:       gin.H{"scheduled_at": future},
			wantStatus: http.StatusOK,
		},
		{
			name:       "cancel",
			setup:      scheduled,
			action:     "cancel",
			body:       gin.H{"admin_notes": "sick"},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			lc := tt.setup(h)
			r := newRouter(h, uuid.New(), models.RoleAdmin)

			rec, env := doJSON(t, r, http.MethodPost, "/admin/live-classes/"+lc.ID.String()+"/"+tt.action, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantErr == "", env.Success)
			assert.Equal(t, tt.wantErr, env.Error)
		})
	}
}

func TestHandler_ProviderFailureIsBadGateway(t *testing.T) {
	h := newHarness()
	h.provider.createErr = &zoom.ProviderError{Op: "create meeting", StatusCode: 429, Body: "rate limited"}
	lc := pending(h)
	r := newRouter(h, uuid.New(), models.RoleAdmin)

	rec, env := doJSON(t, r, http.MethodPost, "/admin/live-classes/"+lc.ID.String()+"/approve",
		gin.H{"scheduled_at": fixedNow.Add(time.Hour).Format(time.RFC3339)})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "zoom create meeting failed (HTTP 429): rate limited", env.Error)
	assert.Equal(t, models.LiveClassPendingApproval, h.store.row(lc.ID).Status)
}

func TestHandler_UnknownAndMalformedIDs(t *testing.T) {
	h := newHarness()
	r := newRouter(h, uuid.New(), models.RoleAdmin)

	rec, env := doJSON(t, r, http.MethodPost, "/admin/live-classes/not-a-uuid/cancel", gin.H{"admin_notes": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid live class id", env.Error)

	rec, env = doJSON(t, r, http.MethodPost, "/admin/live-classes/"+uuid.NewString()+"/cancel", gin.H{"admin_notes": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrNotFound.Error(), env.Error)
}

func TestHandler_TeacherCreateAndVisibility(t *testing.T) {
	h := newHarness()
	teacher := uuid.New()
	r := newRouter(h, teacher, models.RoleTeacher)

	rec, env := doJSON(t, r, http.MethodPost, "/live-classes", gin.H{
		"title":               "Biology",
		"duration_minutes":    60,
		"submit_for_approval": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, string(models.LiveClassPendingApproval), data["status"])
	assert.NotContains(t, data, "meeting")

	other := h.store.seed(&models.LiveClassSession{Title: "Other", DurationMinutes: 30, Status: models.LiveClassDraft})

	rec, env = doJSON(t, r, http.MethodGet, "/live-classes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data, 1)

	rec, _ = doJSON(t, r, http.MethodGet, "/live-classes/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = doJSON(t, r, http.MethodGet, "/live-classes?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid status", env.Error)

	admin := newRouter(h, uuid.New(), models.RoleAdmin)
	rec, env = doJSON(t, admin, http.MethodGet, "/admin/live-classes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := env.Data.([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "Biology", list[0].(map[string]interface{})["title"])
}
