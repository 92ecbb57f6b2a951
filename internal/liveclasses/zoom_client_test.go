package liveclasses

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
)

// zoomAPI serves the provider endpoints the service uses and records what reached it.
type zoomAPI struct {
	mu           sync.Mutex
	createBody   string
	getStatus    int
	deleteStatus int
	patchTimes   []string
	deletes      []string
}

func newZoomAPI(t *testing.T) (*zoomAPI, *zoom.Client) {
	api := &zoomAPI{
		createBody:   `{"id":85746065432,"join_url":"https://zoom.us/j/85746065432","start_url":"https://zoom.us/s/85746065432"}`,
		deleteStatus: http.StatusNoContent,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /v2/users/me/meetings", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, api.createBody)
	})
	mux.HandleFunc("PATCH /v2/meetings/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			StartTime string `json:"start_time"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		api.patchTimes = append(api.patchTimes, body.StartTime)
		api.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /v2/meetings/{id}", func(w http.ResponseWriter, r *http.Request) {
		if api.getStatus != 0 {
			w.WriteHeader(api.getStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":`+r.PathValue("id")+`,"status":"waiting"}`)
	})
	mux.HandleFunc("DELETE /v2/meetings/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.deletes = append(api.deletes, r.PathValue("id"))
		api.mu.Unlock()
		w.WriteHeader(api.deleteStatus)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := zoom.NewClient(zoom.Config{
		AccountID:    "acct",
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      srv.URL + "/oauth/token",
		APIBaseURL:   srv.URL + "/v2",
		Timeout:      2 * time.Second,
		MaxRetries:   1,
		RetryWait:    time.Millisecond,
	}, nil)
	return api, client
}

func newHarnessWithZoom(t *testing.T) (*harness, *zoomAPI) {
	api, client := newZoomAPI(t)
	h := newHarness()
	h.svc = NewService(h.store, client, h.mail, h.cleanup, nil)
	h.svc.now = func() time.Time { return fixedNow }
	return h, api
}

func TestReschedule_ReadBackFailureStillCommits(t *testing.T) {
	h, api := newHarnessWithZoom(t)
	api.getStatus = http.StatusServiceUnavailable
	lc := scheduled(h)
	at := fixedNow.Add(96 * time.Hour)

	got, err := h.svc.Reschedule(context.Background(), lc.ID, RescheduleInput{AdminID: uuid.New(), ScheduledAt: at})
	require.NoError(t, err)
	assert.True(t, got.ScheduledAt.Equal(at))

	row := h.store.row(lc.ID)
	assert.True(t, row.ScheduledAt.Equal(at))
	assert.Equal(t, []string{at.UTC().Format("2006-01-02T15:04:05Z")}, api.patchTimes)
	assert.JSONEq(t, `{"id":85512345678}`, string(row.MeetingPayload))
	assert.Equal(t, lc.Meeting, row.Meeting)
}

func TestReschedule_StoresReadBackPayload(t *testing.T) {
	h, api := newHarnessWithZoom(t)
	lc := scheduled(h)
	at := fixedNow.Add(96 * time.Hour)

	_, err := h.svc.Reschedule(context.Background(), lc.ID, RescheduleInput{AdminID: uuid.New(), ScheduledAt: at})
	require.NoError(t, err)

	assert.Len(t, api.patchTimes, 1)
	assert.JSONEq(t, `{"id":85512345678,"status":"waiting"}`, string(h.store.row(lc.ID).MeetingPayload))
}

func TestApprove_PartialCreateResponseDeletesRemoteMeeting(t *testing.T) {
	tests := []struct {
		name         string
		deleteStatus int
		wantJobs     int
	}{
		{"deleted", http.StatusNoContent, 0},
		{"delete rejected", http.StatusBadRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, api := newHarnessWithZoom(t)
			api.createBody = `{"id":85746065432,"join_url":"https://zoom.us/j/85746065432"}`
			api.deleteStatus = tt.deleteStatus
			lc := pending(h)

			_, err := h.svc.Approve(context.Background(), lc.ID, ApproveInput{AdminID: uuid.New(), ScheduledAt: fixedNow.Add(time.Hour)})
			var perr *zoom.ProviderError
			require.ErrorAs(t, err, &perr)

			assert.Equal(t, []string{"85746065432"}, api.deletes)
			assert.Equal(t, models.LiveClassPendingApproval, h.store.row(lc.ID).Status)
			assert.Nil(t, h.store.row(lc.ID).Meeting)
			assert.Len(t, h.cleanup.jobs, tt.wantJobs)
		})
	}
}
