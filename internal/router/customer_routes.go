package router

import (
    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/handler"
    "github.com/yumrun/yumrun-backend/internal/middleware"
    "github.com/yumrun/yumrun-backend/internal/model"
)

// RegisterCustomerRoutes wires the customer-facing surface: order placement
// and tracking, the loyalty account and in-app notifications.  rewardsCache
// is the response-cache middleware applied to the reward catalog only; the
// remaining endpoints return per-user data and must not be cached.
func RegisterCustomerRoutes(e *echo.Echo, oh *handler.OrderHandler, lh *handler.LoyaltyHandler,
    nh *handler.NotificationHandler, jwtSecret string, rewardsCache echo.MiddlewareFunc) {

    // Order reads are shared: the handler scopes results to the caller and
    // its role (customer, restaurant or rider).
    orders := e.Group("/v1/orders")
    orders.Use(middleware.JWTAuth(jwtSecret))
    orders.GET("/:id", oh.Get)

    // Placement and cancellation are customer operations; admins may also
    // cancel on a customer's behalf.
    orders.POST("", oh.Create, middleware.RequireRole(model.RoleCustomer))
    orders.POST("/:id/cancel", oh.Cancel, middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))

    e.GET("/v1/my-orders", oh.ListMine, middleware.JWTAuth(jwtSecret))

    loy := e.Group("/v1/loyalty")
    loy.Use(middleware.JWTAuth(jwtSecret))
    loy.GET("/info", lh.Info)
    loy.GET("/transactions", lh.Transactions)
    loy.GET("/rewards", lh.Rewards, rewardsCache)
    loy.POST("/redeem", lh.Redeem, middleware.RequireRole(model.RoleCustomer))

    notif := e.Group("/v1/notifications")
    notif.Use(middleware.JWTAuth(jwtSecret))
    notif.GET("", nh.List)
    notif.POST("/:id/read", nh.MarkRead)
}
