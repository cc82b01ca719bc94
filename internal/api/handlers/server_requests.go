package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fixflow.io/fixflow/internal/domain"
	"fixflow.io/fixflow/internal/repository"
	"fixflow.io/fixflow/internal/usecase"
)

// CreateRequest handles POST /requests.
func (s *Server) CreateRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var in usecase.CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	req, err := s.lifecycle.CreateRequest(c.Request.Context(), in, a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GetRequest handles GET /requests/:id.
func (s *Server) GetRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	req, err := s.lifecycle.GetRequest(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListRequests handles GET /requests with filtering, sorting and pagination.
func (s *Server) ListRequests(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	f := repository.Filter{
		Status:        domain.Status(c.Query("status")),
		Priority:      domain.Priority(c.Query("priority")),
		CategoryID:    c.Query("category_id"),
		Building:      c.Query("building"),
		RequestedByID: c.Query("requested_by"),
		AssignedToID:  c.Query("assigned_to"),
		Search:        c.Query("search"),
		SortBy:        c.Query("sort_by"),
		SortDesc:      c.Query("sort_dir") == "desc",
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))

	if v := c.Query("created_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.CreatedFrom = &t
		}
	}
	if v := c.Query("created_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.CreatedTo = &t
		}
	}

	page, err := s.lifecycle.ListRequests(c.Request.Context(), f, a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type updateStatusRequest struct {
	Status domain.Status `json:"status" binding:"required"`
	Reason string        `json:"reason"`
}

// UpdateRequestStatus handles POST /requests/:id/status.
func (s *Server) UpdateRequestStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	req, err := s.lifecycle.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status, body.Reason, a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetStatusHistory handles GET /requests/:id/history.
func (s *Server) GetStatusHistory(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	rows, err := s.lifecycle.StatusHistory(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// DeleteRequest handles DELETE /requests/:id (admin only).
func (s *Server) DeleteRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	if err := s.lifecycle.DeleteRequest(c.Request.Context(), c.Param("id"), a); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
