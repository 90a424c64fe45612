package router

import (
    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/handler"
    "github.com/yumrun/yumrun-backend/internal/middleware"
    "github.com/yumrun/yumrun-backend/internal/model"
)

// RegisterAdminRoutes wires the admin-only surface: manual point
// adjustments, the expiry batch, reward catalog management and rider
// approval.
func RegisterAdminRoutes(e *echo.Echo, lh *handler.LoyaltyHandler, ah *handler.AdminHandler, jwtSecret string) {
    loy := e.Group("/v1/loyalty")
    loy.Use(middleware.JWTAuth(jwtSecret))
    loy.Use(middleware.RequireRole(model.RoleAdmin))
    loy.POST("/adjust", lh.Adjust)
    loy.POST("/process-expired", lh.ProcessExpired)
    loy.POST("/rewards", lh.CreateReward)

    adm := e.Group("/v1/admin")
    adm.Use(middleware.JWTAuth(jwtSecret))
    adm.Use(middleware.RequireRole(model.RoleAdmin))
    adm.POST("/riders/:id/approve", ah.ApproveRider)
}
