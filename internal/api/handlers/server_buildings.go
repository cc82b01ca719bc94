package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fixflow.io/fixflow/internal/service"
)

// CreateBuilding handles POST /admin/buildings.
func (s *Server) CreateBuilding(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var in service.CreateBuildingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	b, err := s.buildings.Create(c.Request.Context(), in, a.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBuilding handles GET /buildings/:name.
func (s *Server) GetBuilding(c *gin.Context) {
	b, err := s.buildings.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBuildings handles GET /buildings.
func (s *Server) ListBuildings(c *gin.Context) {
	items, err := s.buildings.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpdateBuilding handles PATCH /admin/buildings/:name.
func (s *Server) UpdateBuilding(c *gin.Context) {
	var in service.UpdateBuildingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	b, err := s.buildings.Update(c.Request.Context(), c.Param("name"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
