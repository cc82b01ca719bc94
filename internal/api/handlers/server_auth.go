package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"fixflow.io/fixflow/internal/api/middleware"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/pkg/logger"
	"fixflow.io/fixflow/internal/repository"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := s.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if repository.IsNoRows(err) {
			logger.Warn("login failed: unknown user")
			fail(c, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid credentials"))
			return
		}
		fail(c, err)
		return
	}
	if !user.IsActive {
		logger.Warn("login failed: disabled account", zap.String("user_id", user.ID))
		fail(c, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("login failed: invalid credentials", zap.String("user_id", user.ID))
		fail(c, apperrors.Unauthorized(apperrors.CodeAuthFailed, "invalid credentials"))
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, user.ID, user.Username, string(user.Role))
	if err != nil {
		logger.Error("failed to generate token", zap.Error(err))
		fail(c, apperrors.Internal("INTERNAL_ERROR", "could not issue token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
			"role":         user.Role,
		},
	})
}

// GetCurrentUser handles GET /auth/me.
func (s *Server) GetCurrentUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	user, err := s.users.GetByID(c.Request.Context(), a.ID)
	if err != nil {
		if repository.IsNoRows(err) {
			fail(c, apperrors.NotFound(apperrors.CodeUserNotFound, "user not found"))
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
