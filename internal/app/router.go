package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fixflow.io/fixflow/internal/api/handlers"
	"fixflow.io/fixflow/internal/api/middleware"
	"fixflow.io/fixflow/internal/domain"
)

func newRouter(server *handlers.Server, signingKey []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/api/v1")

	// Public surface.
	v1.POST("/auth/login", server.Login)
	v1.GET("/health/live", server.GetLiveness)
	v1.GET("/health/ready", server.GetReadiness)

	// Everything else requires authentication.
	authed := v1.Group("", middleware.JWTAuth(signingKey))
	{
		authed.GET("/auth/me", server.GetCurrentUser)

		authed.POST("/requests", server.CreateRequest)
		authed.GET("/requests", server.ListRequests)
		authed.GET("/requests/:id", server.GetRequest)
		authed.POST("/requests/:id/status", server.UpdateRequestStatus)
		authed.GET("/requests/:id/history", server.GetStatusHistory)
		authed.GET("/requests/:id/assignments", server.GetAssignmentHistory)

		authed.POST("/requests/:id/self-assign",
			middleware.RequireRole(domain.RoleTechnician), server.SelfAssignRequest)

		authed.GET("/buildings", server.ListBuildings)
		authed.GET("/buildings/:name", server.GetBuilding)

		authed.GET("/users/technicians",
			middleware.RequireRole(domain.RoleTechnician), server.ListTechnicians)

		authed.GET("/notifications", server.ListNotifications)
		authed.POST("/notifications/:id/read", server.MarkNotificationRead)
	}

	// Admin surface.
	admin := authed.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/requests/:id/assign", server.AssignRequest)
		admin.POST("/requests/:id/unassign", server.UnassignRequest)
		admin.DELETE("/requests/:id", server.DeleteRequest)

		admin.POST("/buildings", server.CreateBuilding)
		admin.PATCH("/buildings/:name", server.UpdateBuilding)

		admin.POST("/users", server.CreateUser)
		admin.PATCH("/users/:id/active", server.SetUserActive)
	}

	return router
}
