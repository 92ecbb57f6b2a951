package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/otp"
	"github.com/kavindurs8/studifynew-sub001/pkg/response"
	"github.com/kavindurs8/studifynew-sub001/pkg/utils"
)

// UserStore is the user persistence the handler needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, verified bool) (*models.User, error)
	MarkEmailVerified(ctx context.Context, email string) error
}

// CodeService issues and checks email verification codes.
type CodeService interface {
	Issue(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
}

var (
	_ UserStore   = (*Repository)(nil)
	_ CodeService = (*otp.Service)(nil)
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"` // teacher (default) or student
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OTPRequest is the body for POST /auth/otp/request.
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyRequest is the body for POST /auth/otp/verify.
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   UserStore
	jwt    *JWTService
	codes  CodeService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo UserStore, jwt *JWTService, codes CodeService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, codes: codes, logger: logger}
}

// Register handles POST /auth/register. Teachers are created unverified and receive a code by
// email; students get a token right away.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleTeacher
	switch req.Role {
	case "", string(models.RoleTeacher):
	case string(models.RoleStudent):
		role = models.RoleStudent
	default:
		response.BadRequest(c, "invalid role")
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := h.repo.GetByEmail(ctx, email); err == nil {
		response.Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("lookup user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.repo.Create(ctx, email, hash, strings.TrimSpace(req.FullName), role, role != models.RoleTeacher)
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	if role == models.RoleTeacher {
		if err := h.codes.Issue(ctx, user.Email); err != nil {
			h.logger.Warn("issue otp after register", zap.String("email", user.Email), zap.Error(err))
		}
		response.Created(c, gin.H{"user": user.ToPublic(), "verification_required": true})
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if user.Role == models.RoleTeacher && !user.Verified() {
		response.Forbidden(c, "email not verified")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// RequestOTP handles POST /auth/otp/request. The response does not reveal whether the email
// belongs to an unverified teacher.
func (h *Handler) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	user, err := h.repo.GetByEmail(ctx, req.Email)
	if err == nil && user.Role == models.RoleTeacher && !user.Verified() {
		if err := h.codes.Issue(ctx, user.Email); err != nil {
			if errors.Is(err, otp.ErrResendTooSoon) {
				response.TooManyRequests(c, err.Error())
				return
			}
			h.logger.Error("issue otp", zap.Error(err))
			response.Internal(c, "failed to issue code")
			return
		}
	}
	response.OK(c, gin.H{"message": "if the account needs verification, a code was sent"})
}

// VerifyOTP handles POST /auth/otp/verify and returns a token on success.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.codes.Verify(ctx, req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, otp.ErrInvalidCode), errors.Is(err, otp.ErrCodeExpired):
			response.BadRequest(c, err.Error())
		case errors.Is(err, otp.ErrTooManyAttempts):
			response.TooManyRequests(c, err.Error())
		default:
			h.logger.Error("verify otp", zap.Error(err))
			response.Internal(c, "failed to verify code")
		}
		return
	}
	if err := h.repo.MarkEmailVerified(ctx, req.Email); err != nil {
		h.logger.Error("mark email verified", zap.Error(err))
		response.Internal(c, "failed to verify email")
		return
	}
	user, err := h.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		response.Internal(c, "failed to load user")
		return
	}
	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// List handles GET /admin/users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
