package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.msgs)
	return c.msgs[len(c.msgs)-1].Data["code"]
}

func setup(t *testing.T, maxAttempts int) (*Service, *captureSender, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sender := &captureSender{}
	svc := NewService(client, sender, Config{Length: 6, TTL: 10 * time.Minute, MaxAttempts: maxAttempts}, nil)
	return svc, sender, mr
}

func TestIssueAndVerify(t *testing.T) {
	svc, sender, mr := setup(t, 5)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, " Teacher@Example.com "))
	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, models.EmailTemplateTeacherOTP, msg.Template)
	assert.Equal(t, "teacher@example.com", msg.To)
	assert.Equal(t, "10", msg.Data["ttl_minutes"])
	code := msg.Data["code"]
	assert.Regexp(t, `^\d{6}$`, code)

	stored := mr.HGet(keyPrefix+"teacher@example.com", "hash")
	assert.NotEmpty(t, stored)
	assert.NotEqual(t, code, stored)
	assert.Greater(t, mr.TTL(keyPrefix+"teacher@example.com"), 9*time.Minute)

	require.NoError(t, svc.Verify(ctx, "teacher@example.com", code))
	assert.ErrorIs(t, svc.Verify(ctx, "teacher@example.com", code), ErrCodeExpired)
}

func TestVerify_WrongCodeUntilLockout(t *testing.T) {
	svc, sender, _ := setup(t, 3)
	ctx := context.Background()
	require.NoError(t, svc.Issue(ctx, "a@example.com"))
	code := sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", wrong), ErrInvalidCode)
	assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", wrong), ErrInvalidCode)
	assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", wrong), ErrTooManyAttempts)
	assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", code), ErrCodeExpired)
}

func TestVerify_CorrectCodeOnLastAttempt(t *testing.T) {
	svc, sender, _ := setup(t, 2)
	ctx := context.Background()
	require.NoError(t, svc.Issue(ctx, "a@example.com"))
	code := sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", wrong), ErrInvalidCode)
	assert.NoError(t, svc.Verify(ctx, "a@example.com", code))
}

func TestVerify_Expired(t *testing.T) {
	svc, sender, mr := setup(t, 5)
	ctx := context.Background()
	require.NoError(t, svc.Issue(ctx, "a@example.com"))
	code := sender.lastCode(t)

	mr.FastForward(11 * time.Minute)
	assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", code), ErrCodeExpired)
	assert.False(t, mr.Exists(keyPrefix+"a@example.com"))
}

func TestIssue_ResendCooldownReplacesCode(t *testing.T) {
	svc, sender, mr := setup(t, 5)
	ctx := context.Background()
	require.NoError(t, svc.Issue(ctx, "a@example.com"))
	first := sender.lastCode(t)

	assert.ErrorIs(t, svc.Issue(ctx, "a@example.com"), ErrResendTooSoon)
	assert.Len(t, sender.msgs, 1)

	mr.FastForward(resendCooldown + time.Second)
	require.NoError(t, svc.Issue(ctx, "a@example.com"))
	second := sender.lastCode(t)

	if first != second {
		assert.ErrorIs(t, svc.Verify(ctx, "a@example.com", first), ErrInvalidCode)
	}
	assert.NoError(t, svc.Verify(ctx, "a@example.com", second))
}
