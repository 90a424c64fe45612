package router

import (
    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/handler"
    "github.com/yumrun/yumrun-backend/internal/middleware"
    "github.com/yumrun/yumrun-backend/internal/model"
)

// RegisterRestaurantRoutes wires the restaurant-facing status workflow.
// Both POST and PATCH are accepted on the mutation endpoints so existing
// clients of either verb keep working; they hit the same handlers.
func RegisterRestaurantRoutes(e *echo.Echo, oh *handler.OrderHandler, jwtSecret string) {
    g := e.Group("/v1/orders")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleRestaurant, model.RoleAdmin))

    g.POST("/:id/status", oh.UpdateStatus)
    g.PATCH("/:id/status", oh.UpdateStatus)
    g.POST("/:id/assign-rider", oh.AssignRider)
    g.PATCH("/:id/assign-rider", oh.AssignRider)

    e.GET("/v1/restaurant/orders", oh.ListMine,
        middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleRestaurant))
}
