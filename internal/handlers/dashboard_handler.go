package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/middleware"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/models"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/service"
)

type DashboardReader interface {
	Get(ctx context.Context, educatorID string) (*models.Dashboard, error)
	Sync(ctx context.Context, educatorID string) (*models.Dashboard, error)
}

type DashboardHandler struct {
	dashboards DashboardReader
	timeout    time.Duration
	log        zerolog.Logger
}

func NewDashboardHandler(dashboards DashboardReader, timeout time.Duration, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		timeout:    timeout,
		log:        log.With().Str("component", "dashboard_handler").Logger(),
	}
}

func (h *DashboardHandler) RegisterRoutes(protected *gin.RouterGroup) {
	dashboard := protected.Group("/dashboard", middleware.RequireRole(service.RoleEducator))
	dashboard.GET("", h.GetDashboard)
	dashboard.POST("/sync", h.SyncDashboard)
}

// educatorID is the caller, or for admins the educatorId query parameter.
func educatorID(c *gin.Context) string {
	caller := callerFrom(c)
	if caller.Role == service.RoleAdmin {
		if id := c.Query("educatorId"); id != "" {
			return id
		}
	}
	return caller.UserID
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	dashboard, err := h.dashboards.Get(ctx, educatorID(c))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}

func (h *DashboardHandler) SyncDashboard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	dashboard, err := h.dashboards.Sync(ctx, educatorID(c))
	if err != nil {
		ErrorResponse(c, h.log, err, nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Dashboard synchronized", dashboard)
}
