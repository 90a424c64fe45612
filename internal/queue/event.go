// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderStatusUpdatedEvent is published after an order's status transition has
// been committed. It contains enough information for downstream consumers to
// notify the customer, log, or trigger analytics without querying the primary
// database.
type OrderStatusUpdatedEvent struct {
    OrderID         uint64 `json:"order_id"`
    CustomerID      uint64 `json:"customer_id"`
    RestaurantID    uint64 `json:"restaurant_id"`
    FromStatus      string `json:"from_status"`
    ToStatus        string `json:"to_status"`
    UpdatedBy       uint64 `json:"updated_by"`
    GrandTotalCents uint32 `json:"grand_total_cents"`
    PointsEarned    int64  `json:"points_earned,omitempty"`
    UpdatedAt       string `json:"updated_at"`
}
