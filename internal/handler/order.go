package handler

import (
    "context"
    "database/sql"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/config"
    "github.com/yumrun/yumrun-backend/internal/model"
    "github.com/yumrun/yumrun-backend/internal/queue"
    "github.com/yumrun/yumrun-backend/internal/repository"
    queue_publisher "github.com/yumrun/yumrun-backend/internal/service"
)

// OrderHandler serves order placement, retrieval and the status workflow.
// Status transitions are validated against model.AllowedTransitions and
// applied through conditional updates, so concurrent writers cannot race an
// order into an invalid state.  Events are published to the broker only
// after the database transaction commits.
type OrderHandler struct {
    LCfg   config.LoyaltyConfig
    Orders *repository.OrderRepo
    Users  *repository.UserRepo
    Ledger *repository.LoyaltyRepo
}

func NewOrderHandler(lcfg config.LoyaltyConfig, o *repository.OrderRepo, u *repository.UserRepo, l *repository.LoyaltyRepo) *OrderHandler {
    return &OrderHandler{LCfg: lcfg, Orders: o, Users: u, Ledger: l}
}

// ----- DTOs -----

type orderItemReq struct {
    Name           string `json:"name"`
    UnitPriceCents uint32 `json:"unit_price_cents"`
    Quantity       uint32 `json:"quantity"`
}

type createOrderReq struct {
    RestaurantID     uint64         `json:"restaurant_id"`
    Items            []orderItemReq `json:"items"`
    DeliveryFeeCents uint32         `json:"delivery_fee_cents"`
    TaxCents         uint32         `json:"tax_cents"`
    TipCents         uint32         `json:"tip_cents"`
    LoyaltyPoints    int64          `json:"loyalty_points_to_use"`
}

type statusReq struct {
    Status string `json:"status"`
}

type assignRiderReq struct {
    RiderID uint64 `json:"rider_id"`
}

type orderResp struct {
    ID                    uint64             `json:"id"`
    CustomerID            uint64             `json:"customer_id"`
    RestaurantID          uint64             `json:"restaurant_id"`
    DeliveryPersonID      *uint64            `json:"delivery_person_id,omitempty"`
    Status                model.OrderStatus  `json:"status"`
    SubtotalCents         uint32             `json:"subtotal_cents"`
    DeliveryFeeCents      uint32             `json:"delivery_fee_cents"`
    TaxCents              uint32             `json:"tax_cents"`
    TipCents              uint32             `json:"tip_cents"`
    GrandTotalCents       uint32             `json:"grand_total_cents"`
    LoyaltyPointsUsed     int64              `json:"loyalty_points_used"`
    EstimatedDeliveryTime *time.Time         `json:"estimated_delivery_time,omitempty"`
    ActualDeliveryTime    *time.Time         `json:"actual_delivery_time,omitempty"`
    CreatedAt             time.Time          `json:"created_at"`
    UpdatedAt             time.Time          `json:"updated_at"`
    NextStatuses          []model.OrderStatus `json:"next_statuses"`
}

func toOrderResp(o model.Order) orderResp {
    return orderResp{
        ID:                    o.ID,
        CustomerID:            o.CustomerID,
        RestaurantID:          o.RestaurantID,
        DeliveryPersonID:      o.DeliveryPersonID,
        Status:                o.Status,
        SubtotalCents:         o.SubtotalCents,
        DeliveryFeeCents:      o.DeliveryFeeCents,
        TaxCents:              o.TaxCents,
        TipCents:              o.TipCents,
        GrandTotalCents:       o.GrandTotalCents,
        LoyaltyPointsUsed:     o.LoyaltyPointsUsed,
        EstimatedDeliveryTime: o.EstimatedDeliveryTime,
        ActualDeliveryTime:    o.ActualDeliveryTime,
        CreatedAt:             o.CreatedAt,
        UpdatedAt:             o.UpdatedAt,
        NextStatuses:          model.NextStatuses(o.Status),
    }
}

// publishStatusEvent pushes a status-change event to the broker after the
// transaction has committed.  Broker failures are logged by the publisher
// and otherwise ignored; the order state in the database is authoritative.
func publishStatusEvent(o model.Order, from model.OrderStatus, updatedBy uint64, pointsEarned int64) {
    ev := queue.OrderStatusUpdatedEvent{
        OrderID:         o.ID,
        CustomerID:      o.CustomerID,
        RestaurantID:    o.RestaurantID,
        FromStatus:      string(from),
        ToStatus:        string(o.Status),
        UpdatedBy:       updatedBy,
        GrandTotalCents: o.GrandTotalCents,
        PointsEarned:    pointsEarned,
        UpdatedAt:       time.Now().UTC().Format(time.RFC3339),
    }
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = queue_publisher.PublishOrderStatusUpdated(ctx, ev)
}

// maxOrderTotalCents caps any single order at one million dollars, far
// above any real basket.  Amounts are summed in 64-bit space against this
// ceiling before they touch the 32-bit cents columns, so client-supplied
// prices and quantities cannot wrap.
const maxOrderTotalCents = int64(100_000_000)

// orderTotals validates the line items and sums the order amounts.  The
// returned error text is safe to echo back to the client.
func orderTotals(items []orderItemReq, feeCents, taxCents, tipCents uint32) (subtotal, preTotal int64, err error) {
    for _, it := range items {
        if it.Name == "" || it.Quantity == 0 {
            return 0, 0, fmt.Errorf("each item needs a name and positive quantity")
        }
        line := int64(it.UnitPriceCents) * int64(it.Quantity)
        if line > maxOrderTotalCents {
            return 0, 0, fmt.Errorf("item %q exceeds the maximum order amount", it.Name)
        }
        subtotal += line
        if subtotal > maxOrderTotalCents {
            return 0, 0, fmt.Errorf("order exceeds the maximum order amount")
        }
    }
    preTotal = subtotal + int64(feeCents) + int64(taxCents) + int64(tipCents)
    if preTotal > maxOrderTotalCents {
        return 0, 0, fmt.Errorf("order exceeds the maximum order amount")
    }
    return subtotal, preTotal, nil
}

// Create places a new PENDING order.  Line items are snapshotted as sent;
// an optional point redemption is debited from the customer's balance and
// discounts the grand total at one cent per point, all in one transaction
// with the order insert.
func (h *OrderHandler) Create(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createOrderReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.RestaurantID == 0 || len(req.Items) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id and items required"})
    }
    if req.LoyaltyPoints < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "loyalty_points_to_use cannot be negative"})
    }

    subtotal, preTotal, err := orderTotals(req.Items, req.DeliveryFeeCents, req.TaxCents, req.TipCents)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    items := make([]model.OrderItem, 0, len(req.Items))
    for _, it := range req.Items {
        items = append(items, model.OrderItem{Name: it.Name, UnitPriceCents: it.UnitPriceCents, Quantity: it.Quantity})
    }
    if req.LoyaltyPoints > preTotal {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "points exceed order total"})
    }
    grandTotal := uint32(preTotal - req.LoyaltyPoints)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    restaurant, err := h.Users.GetByID(ctx, req.RestaurantID)
    if err != nil {
        return writeRepoError(c, err, "load restaurant failed")
    }
    if restaurant.Role != model.RoleRestaurant {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id is not a restaurant"})
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

    o := model.Order{
        CustomerID:        uid,
        RestaurantID:      req.RestaurantID,
        SubtotalCents:     uint32(subtotal),
        DeliveryFeeCents:  req.DeliveryFeeCents,
        TaxCents:          req.TaxCents,
        TipCents:          req.TipCents,
        GrandTotalCents:   grandTotal,
        LoyaltyPointsUsed: req.LoyaltyPoints,
    }
    if err := h.Orders.CreateTx(ctx, tx, &o, items); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
    }

    if req.LoyaltyPoints > 0 {
        points, lifetime, tier, err := h.Users.GetLoyaltyForUpdateTx(ctx, tx, uid)
        if err != nil {
            return writeRepoError(c, err, "load balance failed")
        }
        if points < req.LoyaltyPoints {
            return writeRepoError(c, repository.ErrInsufficientPoints, "")
        }
        newBalance := points - req.LoyaltyPoints
        entry := &model.LoyaltyTransaction{
            UserID:       uid,
            RestaurantID: &o.RestaurantID,
            Points:       -req.LoyaltyPoints,
            Type:         model.TxnRedeem,
            Source:       model.SourceOrder,
            Description:  fmt.Sprintf("Points applied to order #%d", o.ID),
            ReferenceID:  &o.ID,
            Balance:      newBalance,
        }
        if err := h.Ledger.InsertTx(ctx, tx, entry); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record redemption failed"})
        }
        if err := h.Users.SetLoyaltyTx(ctx, tx, uid, newBalance, lifetime, tier, tier); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update balance failed"})
        }
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    return c.JSON(http.StatusCreated, echo.Map{"order": toOrderResp(o)})
}

// canViewOrder gates read access: the customer who placed it, the
// restaurant fulfilling it, the assigned rider, or an admin.
func canViewOrder(o model.Order, uid uint64, role string) bool {
    switch role {
    case model.RoleAdmin:
        return true
    case model.RoleCustomer:
        return o.CustomerID == uid
    case model.RoleRestaurant:
        return o.RestaurantID == uid
    case model.RoleRider:
        return o.DeliveryPersonID != nil && *o.DeliveryPersonID == uid
    }
    return false
}

// Get returns a single order with its items and status history.
func (h *OrderHandler) Get(c echo.Context) error {
    uid := getUserID(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    o, err := h.Orders.GetByID(ctx, id)
    if err != nil {
        return writeRepoError(c, err, "load order failed")
    }
    if !canViewOrder(o, uid, getRole(c)) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    items, err := h.Orders.ListItems(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load items failed"})
    }
    history, err := h.Orders.ListStatusUpdates(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load history failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "order":   toOrderResp(o),
        "items":   items,
        "history": history,
    })
}

// ListMine returns the caller's orders: placed (customer), received
// (restaurant) or claimed (rider).
func (h *OrderHandler) ListMine(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    var (
        orders []model.Order
        err    error
    )
    switch getRole(c) {
    case model.RoleRestaurant:
        orders, err = h.Orders.ListByRestaurant(ctx, uid)
    case model.RoleRider:
        orders, err = h.Orders.ListByRider(ctx, uid)
    default:
        orders, err = h.Orders.ListByCustomer(ctx, uid)
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list orders failed"})
    }
    out := make([]orderResp, 0, len(orders))
    for _, o := range orders {
        out = append(out, toOrderResp(o))
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// UpdateStatus advances an order along the transition table (restaurant or
// admin).  An off-table move is rejected with the statuses that would have
// been accepted; losing a concurrent race surfaces as 409.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
    uid := getUserID(c)
    role := getRole(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    var req statusReq
    if err := c.Bind(&req); err != nil || req.Status == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
    }
    to := model.OrderStatus(req.Status)
    if !model.ValidStatus(to) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

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
    if role != model.RoleAdmin && o.RestaurantID != uid {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    from := o.Status
    if !model.CanTransition(from, to) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":         fmt.Sprintf("cannot move from %s to %s", from, to),
            "next_statuses": model.NextStatuses(from),
        })
    }
    if err := h.Orders.UpdateStatusTx(ctx, tx, id, from, to, uid); err != nil {
        return writeRepoError(c, err, "update status failed")
    }
    // A cancellation refunds redeemed points no matter which side of the
    // counter initiated it.
    if to == model.StatusCancelled {
        if err := h.refundRedeemedPointsTx(ctx, tx, o); err != nil {
            return writeRepoError(c, err, "refund points failed")
        }
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    o.Status = to
    publishStatusEvent(o, from, uid, 0)
    return c.JSON(http.StatusOK, echo.Map{"order": toOrderResp(o)})
}

// refundRedeemedPointsTx returns the points a customer redeemed at
// placement, inside the caller's cancellation transaction.  Both the
// customer cancel endpoint and a restaurant or admin moving the order to
// CANCELLED through the status endpoint go through here, so no
// cancellation path can leave the REDEEM row charged.  Refunds restore
// spendable balance only; lifetime points and tier were never advanced by
// the redemption.  No-op for orders placed without points.
func (h *OrderHandler) refundRedeemedPointsTx(ctx context.Context, tx *sql.Tx, o model.Order) error {
    if o.LoyaltyPointsUsed <= 0 {
        return nil
    }
    points, lifetime, tier, err := h.Users.GetLoyaltyForUpdateTx(ctx, tx, o.CustomerID)
    if err != nil {
        return err
    }
    newBalance := points + o.LoyaltyPointsUsed
    entry := &model.LoyaltyTransaction{
        UserID:       o.CustomerID,
        RestaurantID: &o.RestaurantID,
        Points:       o.LoyaltyPointsUsed,
        Type:         model.TxnAdjust,
        Source:       model.SourceRefund,
        Description:  fmt.Sprintf("Points refunded for cancelled order #%d", o.ID),
        ReferenceID:  &o.ID,
        Balance:      newBalance,
    }
    if err := h.Ledger.InsertTx(ctx, tx, entry); err != nil {
        return err
    }
    return h.Users.SetLoyaltyTx(ctx, tx, o.CustomerID, newBalance, lifetime, tier, tier)
}

// Cancel lets the customer abort an order while the table still allows it.
// Points redeemed at placement are returned to the balance in the same
// transaction as the cancellation.
func (h *OrderHandler) Cancel(c echo.Context) error {
    uid := getUserID(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

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
    if o.CustomerID != uid && getRole(c) != model.RoleAdmin {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    from := o.Status
    if !model.CanTransition(from, model.StatusCancelled) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":         fmt.Sprintf("cannot cancel an order in %s", from),
            "next_statuses": model.NextStatuses(from),
        })
    }
    if err := h.Orders.UpdateStatusTx(ctx, tx, id, from, model.StatusCancelled, uid); err != nil {
        return writeRepoError(c, err, "cancel failed")
    }
    if err := h.refundRedeemedPointsTx(ctx, tx, o); err != nil {
        return writeRepoError(c, err, "refund points failed")
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    o.Status = model.StatusCancelled
    publishStatusEvent(o, from, uid, 0)
    return c.JSON(http.StatusOK, echo.Map{"order": toOrderResp(o)})
}

// AssignRider dispatches a specific approved rider to an order (restaurant
// or admin).  The claim is atomic; an order that already has a rider or
// has moved past READY rejects the assignment with 409.
func (h *OrderHandler) AssignRider(c echo.Context) error {
    uid := getUserID(c)
    role := getRole(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    var req assignRiderReq
    if err := c.Bind(&req); err != nil || req.RiderID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "rider_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    rider, err := h.Users.GetByID(ctx, req.RiderID)
    if err != nil {
        return writeRepoError(c, err, "load rider failed")
    }
    if rider.Role != model.RoleRider {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "rider_id is not a rider"})
    }
    if !rider.Approved {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "rider not approved"})
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
    if role != model.RoleAdmin && o.RestaurantID != uid {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    from := o.Status
    if err := h.Orders.ClaimForDeliveryTx(ctx, tx, id, req.RiderID); err != nil {
        return writeRepoError(c, err, "assign rider failed")
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    o.Status = model.StatusOutForDelivery
    o.DeliveryPersonID = &req.RiderID
    publishStatusEvent(o, from, uid, 0)
    return c.JSON(http.StatusOK, echo.Map{"order": toOrderResp(o)})
}
