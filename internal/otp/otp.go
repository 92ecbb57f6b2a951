// Package otp issues and verifies one-time email verification codes for teacher sign-up.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/pkg/utils"
)

var (
	ErrCodeExpired     = errors.New("verification code expired or not requested")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrResendTooSoon   = errors.New("a code was sent recently, try again later")
)

const (
	keyPrefix      = "otp:teacher:"
	cooldownPrefix = "otp:cooldown:"
	resendCooldown = time.Minute
)

// bumpAttempts increments the attempt counter of a live code. It returns -1 when no code exists,
// so an expired key is never recreated without a TTL.
var bumpAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// Config controls code shape and lifetime.
type Config struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

// Service stores bcrypt hashes of issued codes in Redis and mails the plain code.
type Service struct {
	rdb    *redis.Client
	mail   mailer.Sender
	cfg    Config
	logger *zap.Logger
}

// NewService creates an OTP service.
func NewService(rdb *redis.Client, mail mailer.Sender, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Service{rdb: rdb, mail: mail, cfg: cfg, logger: logger}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue creates a fresh code for email, replacing any previous one, and queues the email.
func (s *Service) Issue(ctx context.Context, email string) error {
	email = normalize(email)
	ok, err := s.rdb.SetNX(ctx, cooldownPrefix+email, 1, resendCooldown).Result()
	if err != nil {
		return fmt.Errorf("otp cooldown: %w", err)
	}
	if !ok {
		return ErrResendTooSoon
	}

	code, err := utils.RandomDigits(s.cfg.Length)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	key := keyPrefix + email
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "hash", hash, "attempts", 0)
		p.Expire(ctx, key, s.cfg.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if s.mail != nil {
		msg := mailer.Message{
			Template: models.EmailTemplateTeacherOTP,
			To:       email,
			Data: map[string]string{
				"code":        code,
				"ttl_minutes": strconv.Itoa(int(s.cfg.TTL / time.Minute)),
			},
		}
		if err := s.mail.Send(ctx, msg); err != nil {
			s.logger.Warn("otp email enqueue failed", zap.Error(err))
		}
	}
	s.logger.Info("otp issued", zap.String("email", email))
	return nil
}

// Verify checks code against the stored hash. A matching code is consumed; after MaxAttempts
// wrong guesses the code is discarded.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = normalize(email)
	key := keyPrefix + email

	attempts, err := bumpAttempts.Run(ctx, s.rdb, []string{key}).Int()
	if err != nil {
		return fmt.Errorf("otp attempts: %w", err)
	}
	if attempts < 0 {
		return ErrCodeExpired
	}
	if attempts > s.cfg.MaxAttempts {
		s.rdb.Del(ctx, key)
		return ErrTooManyAttempts
	}

	hash, err := s.rdb.HGet(ctx, key, "hash").Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeExpired
	}
	if err != nil {
		return fmt.Errorf("otp lookup: %w", err)
	}
	if !utils.CheckPassword(strings.TrimSpace(code), hash) {
		if attempts >= s.cfg.MaxAttempts {
			s.rdb.Del(ctx, key)
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	s.rdb.Del(ctx, key, cooldownPrefix+email)
	s.logger.Info("otp verified", zap.String("email", email))
	return nil
}
