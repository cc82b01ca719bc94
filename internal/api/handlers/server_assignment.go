package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type assignRequest struct {
	TechnicianID string `json:"technician_id" binding:"required"`
	Reason       string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// AssignRequest handles POST /requests/:id/assign (admin only).
func (s *Server) AssignRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var body assignRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	req, err := s.lifecycle.Assign(c.Request.Context(), c.Param("id"), body.TechnicianID, body.Reason, a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// SelfAssignRequest handles POST /requests/:id/self-assign (technicians).
func (s *Server) SelfAssignRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var body reasonRequest
	_ = c.ShouldBindJSON(&body) // reason is optional

	req, err := s.lifecycle.SelfAssign(c.Request.Context(), c.Param("id"), body.Reason, a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// UnassignRequest handles POST /requests/:id/unassign (admin only).
func (s *Server) UnassignRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var body reasonRequest
	_ = c.ShouldBindJSON(&body)

	req, err := s.lifecycle.Unassign(c.Request.Context(), c.Param("id"), body.Reason, a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetAssignmentHistory handles GET /requests/:id/assignments.
func (s *Server) GetAssignmentHistory(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	rows, err := s.lifecycle.AssignmentHistory(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
