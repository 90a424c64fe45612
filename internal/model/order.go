package model

import "time"

// OrderStatus is the lifecycle state of an order.  PENDING is the initial
// state; DELIVERED and CANCELLED are terminal.
type OrderStatus string

const (
    StatusPending        OrderStatus = "PENDING"
    StatusConfirmed      OrderStatus = "CONFIRMED"
    StatusPreparing      OrderStatus = "PREPARING"
    StatusReady          OrderStatus = "READY"
    StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
    StatusDelivered      OrderStatus = "DELIVERED"
    StatusCancelled      OrderStatus = "CANCELLED"
)

// AllowedTransitions is the single authoritative transition table consumed
// by every status-changing endpoint.  READY -> OUT_FOR_DELIVERY and
// OUT_FOR_DELIVERY -> DELIVERED are intentionally absent: the first happens
// through the rider-claim path (assign-rider / delivery accept) and the
// second through the delivery completion endpoint, both of which carry
// extra conditions beyond the table.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
    StatusPending:        {StatusConfirmed, StatusCancelled},
    StatusConfirmed:      {StatusPreparing, StatusCancelled},
    StatusPreparing:      {StatusReady, StatusCancelled},
    StatusReady:          {StatusCancelled},
    StatusOutForDelivery: {},
    StatusDelivered:      {},
    StatusCancelled:      {},
}

// CanTransition reports whether the table permits moving from one status
// to another.  Unknown statuses have no outgoing transitions.
func CanTransition(from, to OrderStatus) bool {
    for _, next := range AllowedTransitions[from] {
        if next == to {
            return true
        }
    }
    return false
}

// NextStatuses returns the statuses reachable from the given status via
// the table.  The returned slice is never nil so callers can embed it in
// error responses directly.
func NextStatuses(from OrderStatus) []OrderStatus {
    next := AllowedTransitions[from]
    if next == nil {
        return []OrderStatus{}
    }
    return next
}

// IsTerminalStatus reports whether no further transition is permitted,
// including the side-channel rider and delivery paths.
func IsTerminalStatus(s OrderStatus) bool {
    return s == StatusDelivered || s == StatusCancelled
}

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s OrderStatus) bool {
    _, ok := AllowedTransitions[s]
    return ok
}

// Order records a customer's food order against a restaurant.  Monetary
// amounts are stored in cents.  ActualDeliveryTime is written exactly
// once, when the order transitions into DELIVERED.
//
// Fields:
//  ID                    – primary key identifier.
//  CustomerID            – user who placed the order.
//  RestaurantID          – restaurant fulfilling the order.
//  DeliveryPersonID      – rider assigned to deliver (nullable until claimed).
//  Status                – current lifecycle state.
//  SubtotalCents         – sum of item prices.
//  DeliveryFeeCents      – delivery fee.
//  TaxCents              – tax amount.
//  TipCents              – tip amount.
//  GrandTotalCents       – total charged; basis for loyalty point earning.
//  LoyaltyPointsUsed     – points redeemed against this order at placement.
//  EstimatedDeliveryTime – quoted delivery time (nullable).
//  ActualDeliveryTime    – stamped on DELIVERED (nullable before).
//  CreatedAt             – creation timestamp.
//  UpdatedAt             – last update timestamp.
type Order struct {
    ID                    uint64      // orders.id
    CustomerID            uint64      // orders.customer_id
    RestaurantID          uint64      // orders.restaurant_id
    DeliveryPersonID      *uint64     // orders.delivery_person_id (nullable)
    Status                OrderStatus // orders.status
    SubtotalCents         uint32      // orders.subtotal_cents
    DeliveryFeeCents      uint32      // orders.delivery_fee_cents
    TaxCents              uint32      // orders.tax_cents
    TipCents              uint32      // orders.tip_cents
    GrandTotalCents       uint32      // orders.grand_total_cents
    LoyaltyPointsUsed     int64       // orders.loyalty_points_used
    EstimatedDeliveryTime *time.Time  // orders.estimated_delivery_time (nullable)
    ActualDeliveryTime    *time.Time  // orders.actual_delivery_time (nullable)
    CreatedAt             time.Time   // orders.created_at
    UpdatedAt             time.Time   // orders.updated_at
}

// OrderItem is a line item snapshot taken at placement.  Name and price
// are copied from the menu at order time so later menu edits do not
// rewrite history.
//
// Fields:
//  ID             – primary key identifier.
//  OrderID        – owning order.
//  Name           – item name at time of order.
//  UnitPriceCents – unit price at time of order.
//  Quantity       – number ordered.
type OrderItem struct {
    ID             uint64 // order_items.id
    OrderID        uint64 // order_items.order_id
    Name           string // order_items.name
    UnitPriceCents uint32 // order_items.unit_price_cents
    Quantity       uint32 // order_items.quantity
}

// OrderStatusUpdate is one row of the append-only audit trail kept in
// `order_status_updates`.  Exactly one row is written per successful
// transition, inside the same transaction as the status change.
//
// Fields:
//  ID        – primary key identifier.
//  OrderID   – order the entry belongs to.
//  Status    – status entered.
//  UpdatedBy – user who performed the transition.
//  CreatedAt – when the transition happened.
type OrderStatusUpdate struct {
    ID        uint64      // order_status_updates.id
    OrderID   uint64      // order_status_updates.order_id
    Status    OrderStatus // order_status_updates.status
    UpdatedBy uint64      // order_status_updates.updated_by
    CreatedAt time.Time   // order_status_updates.created_at
}
