package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/repository"
)

type createUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" binding:"required"`
}

// CreateUser handles POST /admin/users.
func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role := domain.Role(req.Role)
	if !role.Valid() {
		fail(c, apperrors.ErrInvalidField("role", "unknown role"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		fail(c, err)
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		if repository.IsUniqueViolation(err) {
			fail(c, apperrors.Conflict(apperrors.CodeValidationFailed, "username already taken"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListTechnicians handles GET /users/technicians, the picker for assignment.
func (s *Server) ListTechnicians(c *gin.Context) {
	items, err := s.users.ListByRole(c.Request.Context(), domain.RoleTechnician)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetUserActive handles PATCH /admin/users/:id/active.
func (s *Server) SetUserActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.users.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
