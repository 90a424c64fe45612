package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/config"
    "github.com/yumrun/yumrun-backend/internal/model"
    "github.com/yumrun/yumrun-backend/internal/repository"
)

// DeliveryHandler serves the rider-facing endpoints: claiming an order,
// completing a delivery and listing claimed orders.  Claims go through the
// same conditional update as restaurant-initiated assignment, so a rider
// self-accepting and a restaurant dispatching cannot both win the same
// order.  Completing a delivery is what credits the customer's loyalty
// points, in the same transaction as the DELIVERED transition.
type DeliveryHandler struct {
    LCfg   config.LoyaltyConfig
    Orders *repository.OrderRepo
    Users  *repository.UserRepo
    Ledger *repository.LoyaltyRepo
}

func NewDeliveryHandler(lcfg config.LoyaltyConfig, o *repository.OrderRepo, u *repository.UserRepo, l *repository.LoyaltyRepo) *DeliveryHandler {
    return &DeliveryHandler{LCfg: lcfg, Orders: o, Users: u, Ledger: l}
}

// Accept lets an approved rider claim an unassigned order.  The losing
// side of a concurrent claim receives 409.
func (h *DeliveryHandler) Accept(c echo.Context) error {
    uid := getUserID(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    rider, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return writeRepoError(c, err, "load rider failed")
    }
    if !rider.Approved {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "rider not approved"})
    }

    tx, err := h.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    o, err := h.Orders.GetByIDTx(ctx, tx, id)
    if err != nil {
        return writeRepoError(c, err, "load order failed")
    }
    from := o.Status
    if err := h.Orders.ClaimForDeliveryTx(ctx, tx, id, uid); err != nil {
        return writeRepoError(c, err, "claim failed")
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    o.Status = model.StatusOutForDelivery
    o.DeliveryPersonID = &uid
    publishStatusEvent(o, from, uid, 0)
    return c.JSON(http.StatusOK, echo.Map{"order": toOrderResp(o)})
}

// Complete marks a delivery done.  Only the assigned rider may call it;
// the DELIVERED transition, the actual_delivery_time stamp and the
// customer's EARN ledger row commit as one transaction, so the customer is
// either fully credited or the order stays OUT_FOR_DELIVERY.
func (h *DeliveryHandler) Complete(c echo.Context) error {
    uid := getUserID(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    now := time.Now().UTC()

    tx, err := h.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    o, err := h.Orders.GetByIDTx(ctx, tx, id)
    if err != nil {
        return writeRepoError(c, err, "load order failed")
    }
    from := o.Status
    if err := h.Orders.CompleteDeliveryTx(ctx, tx, id, uid, now); err != nil {
        return writeRepoError(c, err, "complete delivery failed")
    }
    earned, err := earnOrderPointsTx(ctx, tx, h.Users, h.Ledger, h.LCfg, o, now)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credit points failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    o.Status = model.StatusDelivered
    o.ActualDeliveryTime = &now
    publishStatusEvent(o, from, uid, earned)
    return c.JSON(http.StatusOK, echo.Map{
        "order":         toOrderResp(o),
        "points_earned": earned,
    })
}

// MyDeliveries lists the orders the rider has claimed, newest first.
func (h *DeliveryHandler) MyDeliveries(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    orders, err := h.Orders.ListByRider(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list deliveries failed"})
    }
    out := make([]orderResp, 0, len(orders))
    for _, o := range orders {
        out = append(out, toOrderResp(o))
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": out})
}
