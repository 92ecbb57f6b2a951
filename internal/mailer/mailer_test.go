package mailer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

func TestRenderAllTemplates(t *testing.T) {
	names := []string{
		models.EmailTemplateLiveClassApproved,
		models.EmailTemplateLiveClassRejected,
		models.EmailTemplateLiveClassRescheduled,
		models.EmailTemplateLiveClassCancelled,
		models.EmailTemplateTeacherOTP,
	}
	data := map[string]string{
		"teacher_name": "Ada",
		"title":        "Algebra I",
		"scheduled_at": "Wed, 01 May 2030 09:00:00 UTC",
		"join_url":     "https://zoom.us/j/1",
		"start_url":    "https://zoom.us/s/1",
		"admin_notes":  "Looks good",
		"code":         "123456",
		"ttl_minutes":  "10",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			r, err := Render(name, data)
			require.NoError(t, err)
			assert.NotEmpty(t, r.Subject)
			assert.NotContains(t, r.Subject, "\n")
			assert.NotEmpty(t, r.Text)
			assert.NotEmpty(t, r.HTML)
			assert.NotContains(t, r.Text, "<no value>")
		})
	}
}

func TestRenderApproved(t *testing.T) {
	r, err := Render(models.EmailTemplateLiveClassApproved, map[string]string{
		"teacher_name": "Ada",
		"title":        "Algebra <I>",
		"join_url":     "https://zoom.us/j/1",
	})
	require.NoError(t, err)
	assert.Equal(t, `Your live class "Algebra <I>" is scheduled`, r.Subject)
	assert.Contains(t, r.Text, "https://zoom.us/j/1")
	assert.NotContains(t, r.Text, "Notes from the administrator")
	assert.Contains(t, r.HTML, "Algebra &lt;I&gt;")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("welcome", nil)
	assert.Error(t, err)
	assert.False(t, Exists("welcome"))
}

func TestQueueSender(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := queue.NewQueue(client, nil)
	sender := NewQueueSender(q)
	ctx := context.Background()
	sessionID := uuid.New()

	err := sender.Send(ctx, Message{
		Template:  models.EmailTemplateLiveClassRejected,
		To:        "teacher@example.com",
		SessionID: &sessionID,
		Data:      map[string]string{"title": "Algebra I"},
	})
	require.NoError(t, err)

	job, _, err := q.Dequeue(ctx, time.Second, queue.QueueEmails)
	require.NoError(t, err)
	require.NotNil(t, job)
	var p queue.EmailPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, models.EmailTemplateLiveClassRejected, p.Template)
	assert.Equal(t, "teacher@example.com", p.Recipient)

	assert.Error(t, sender.Send(ctx, Message{Template: "nope", To: "x@example.com"}))
	assert.Error(t, sender.Send(ctx, Message{Template: models.EmailTemplateTeacherOTP}))
}
