package router

import (
    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/handler"
    "github.com/yumrun/yumrun-backend/internal/middleware"
    "github.com/yumrun/yumrun-backend/internal/model"
)

// RegisterRiderRoutes wires the rider-facing delivery endpoints.
func RegisterRiderRoutes(e *echo.Echo, dh *handler.DeliveryHandler, jwtSecret string) {
    g := e.Group("/v1/delivery")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleRider))

    g.POST("/accept/:id", dh.Accept)
    g.POST("/complete/:id", dh.Complete)
    g.GET("/my-deliveries", dh.MyDeliveries)
}
