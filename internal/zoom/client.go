// Package zoom is a client for the meeting provider's server-to-server API: token
// acquisition plus create, update and delete of scheduled meetings.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	meetingTypeScheduled = 2
	approvalTypeAuto     = 0
	startTimeLayout      = "2006-01-02T15:04:05Z"
	maxErrorBody         = 4 << 10
)

// Config configures a Client.
type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	AuthURL      string
	APIBaseURL   string
	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration
}

// MeetingSpec is the local view of a meeting sent to the provider.
type MeetingSpec struct {
	Topic           string
	Agenda          string
	StartTime       time.Time
	DurationMinutes int
}

// Meeting is a provisioned provider meeting.
type Meeting struct {
	ID       string
	JoinURL  string
	StartURL string
	Password *string
	Raw      json.RawMessage
}

// Client talks to the provider REST API. The bearer token is cached on the instance and
// refreshed once the provider's expires_in lapses.
type Client struct {
	baseURL    string
	http       *http.Client
	tokens     oauth2.TokenSource
	maxRetries int
	retryWait  time.Duration
	logger     *zap.Logger
}

// NewClient creates a provider client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		http:       httpClient,
		tokens:     cc.TokenSource(tokenCtx),
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
		logger:     logger,
	}
}

type meetingSettings struct {
	HostVideo        bool `json:"host_video"`
	ParticipantVideo bool `json:"participant_video"`
	JoinBeforeHost   bool `json:"join_before_host"`
	MuteUponEntry    bool `json:"mute_upon_entry"`
	WaitingRoom      bool `json:"waiting_room"`
	ApprovalType     int  `json:"approval_type"`
}

type createMeetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone"`
	Agenda    string          `json:"agenda"`
	Settings  meetingSettings `json:"settings"`
}

type updateMeetingRequest struct {
	Topic     string `json:"topic"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone"`
	Agenda    string `json:"agenda"`
}

type meetingResponse struct {
	ID       json.RawMessage `json:"id"`
	JoinURL  string          `json:"join_url"`
	StartURL string          `json:"start_url"`
	Password string          `json:"password"`
}

var defaultSettings = meetingSettings{
	HostVideo:        true,
	ParticipantVideo: true,
	JoinBeforeHost:   false,
	MuteUponEntry:    true,
	WaitingRoom:      true,
	ApprovalType:     approvalTypeAuto,
}

// CreateMeeting schedules a new meeting. It is not retried: a lost response could otherwise
// leave two meetings behind.
func (c *Client) CreateMeeting(ctx context.Context, spec MeetingSpec) (*Meeting, error) {
	req := createMeetingRequest{
		Topic:     spec.Topic,
		Type:      meetingTypeScheduled,
		StartTime: spec.StartTime.UTC().Format(startTimeLayout),
		Duration:  spec.DurationMinutes,
		Timezone:  "UTC",
		Agenda:    spec.Agenda,
		Settings:  defaultSettings,
	}
	body, err := c.do(ctx, "create meeting", http.MethodPost, "/users/me/meetings", req, false)
	if err != nil {
		return nil, err
	}

	var resp meetingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Op: "create meeting", Err: fmt.Errorf("decode response: %w", err)}
	}
	m := &Meeting{
		ID:       strings.Trim(string(resp.ID), `"`),
		JoinURL:  resp.JoinURL,
		StartURL: resp.StartURL,
		Raw:      json.RawMessage(body),
	}
	if m.ID == "null" {
		m.ID = ""
	}
	if m.ID == "" || m.JoinURL == "" || m.StartURL == "" {
		return nil, &ProviderError{
			Op:        "create meeting",
			MeetingID: m.ID,
			Err:       errors.New("response missing id, join_url or start_url"),
		}
	}
	if resp.Password != "" {
		pwd := resp.Password
		m.Password = &pwd
	}
	c.logger.Info("zoom meeting created", zap.String("meeting_id", m.ID))
	return m, nil
}

// UpdateMeeting sends the schedule fields for an existing meeting and returns the provider's
// current representation of it. Once the PATCH is accepted the update has happened: a failed
// read-back is logged and yields a nil body, never an error.
func (c *Client) UpdateMeeting(ctx context.Context, meetingID string, spec MeetingSpec) (json.RawMessage, error) {
	req := updateMeetingRequest{
		Topic:     spec.Topic,
		StartTime: spec.StartTime.UTC().Format(startTimeLayout),
		Duration:  spec.DurationMinutes,
		Timezone:  "UTC",
		Agenda:    spec.Agenda,
	}
	path := "/meetings/" + url.PathEscape(meetingID)
	if _, err := c.do(ctx, "update meeting", http.MethodPatch, path, req, true); err != nil {
		return nil, err
	}
	c.logger.Info("zoom meeting updated", zap.String("meeting_id", meetingID))

	// PATCH answers 204; read the resource back for storage.
	body, err := c.do(ctx, "get meeting", http.MethodGet, path, nil, true)
	if err != nil {
		c.logger.Warn("zoom meeting read-back failed", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, nil
	}
	return json.RawMessage(body), nil
}

// DeleteMeeting removes a meeting. A meeting that is already gone counts as deleted.
func (c *Client) DeleteMeeting(ctx context.Context, meetingID string) error {
	_, err := c.do(ctx, "delete meeting", http.MethodDelete, "/meetings/"+url.PathEscape(meetingID), nil, true)
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
		c.logger.Info("zoom meeting already deleted", zap.String("meeting_id", meetingID))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.Info("zoom meeting deleted", zap.String("meeting_id", meetingID))
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}, retryable bool) ([]byte, error) {
	var raw []byte
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return nil, &ProviderError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
	}

	attempts := 1
	if retryable {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &ProviderError{Op: op, Err: ctx.Err()}
			case <-time.After(c.retryWait * time.Duration(attempt-1)):
			}
		}

		body, retry, err := c.once(ctx, op, method, path, raw)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger.Warn("zoom request failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// once performs a single request and reports whether a failure is worth retrying.
func (c *Client) once(ctx context.Context, op, method, path string, raw []byte) ([]byte, bool, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, false, authError(err)
	}

	var reqBody io.Reader
	if raw != nil {
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, false, &ProviderError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	tok.SetAuthHeader(req)
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, false, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, &AuthError{StatusCode: resp.StatusCode, Body: truncate(body)}
	default:
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
}

func authError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &AuthError{StatusCode: re.Response.StatusCode, Body: truncate(re.Body), Err: err}
	}
	return &AuthError{Err: err}
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
