// Package handlers implements the HTTP API over the lifecycle use case and
// services. Route registration lives in internal/app; handlers do not
// register their own routes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"fixflow.io/fixflow/internal/api/middleware"
	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/repository"
	"fixflow.io/fixflow/internal/service"
	"fixflow.io/fixflow/internal/usecase"
)

// Server holds every handler dependency.
type Server struct {
	pool          *pgxpool.Pool
	jwtCfg        middleware.JWTConfig
	lifecycle     *usecase.Lifecycle
	buildings     *service.BuildingRegistry
	users         *repository.UserRepo
	notifications *repository.NotificationRepo
	bcryptCost    int
}

// ServerDeps holds all dependencies for creating a Server. Manual DI, no
// Wire/Dig.
type ServerDeps struct {
	Pool          *pgxpool.Pool
	JWTCfg        middleware.JWTConfig
	Lifecycle     *usecase.Lifecycle
	Buildings     *service.BuildingRegistry
	Users         *repository.UserRepo
	Notifications *repository.NotificationRepo
	BcryptCost    int
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Server{
		pool:          deps.Pool,
		jwtCfg:        deps.JWTCfg,
		lifecycle:     deps.Lifecycle,
		buildings:     deps.Buildings,
		users:         deps.Users,
		notifications: deps.Notifications,
		bcryptCost:    cost,
	}
}

// actor extracts the authenticated actor or aborts with 401.
func actor(c *gin.Context) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code": "UNAUTHORIZED", "message": "authentication required",
		})
	}
	return a, ok
}

// fail routes an error through the centralized error handler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// badRequest reports a malformed body or parameter.
func badRequest(c *gin.Context, err error) {
	fail(c, apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
}
