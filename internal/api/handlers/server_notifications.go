package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /notifications for the authenticated user.
func (s *Server) ListNotifications(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := s.notifications.ListByRecipient(c.Request.Context(), a.ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// MarkNotificationRead handles POST /notifications/:id/read. Scoped to the
// recipient so nobody can mark another user's inbox.
func (s *Server) MarkNotificationRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	if err := s.notifications.MarkRead(c.Request.Context(), c.Param("id"), a.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
