package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/yumrun/yumrun-backend/internal/model"
)

// OrderRepo provides CRUD operations for orders, their line items and the
// append-only status audit trail.  Status changes are conditional updates:
// the UPDATE carries the expected current status in its WHERE clause, so a
// concurrent change makes the statement affect zero rows and the caller
// receives ErrConflict instead of silently overwriting.  All timestamp
// fields are assumed to be stored in UTC.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span this repository and the loyalty ledger.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `id, customer_id, restaurant_id, delivery_person_id, status,
               subtotal_cents, delivery_fee_cents, tax_cents, tip_cents, grand_total_cents,
               loyalty_points_used, estimated_delivery_time, actual_delivery_time,
               created_at, updated_at`

type orderScanner interface {
    Scan(dest ...interface{}) error
}

func scanOrder(row orderScanner) (model.Order, error) {
    var o model.Order
    var rider sql.NullInt64
    var est, actual sql.NullTime
    err := row.Scan(&o.ID, &o.CustomerID, &o.RestaurantID, &rider, &o.Status,
        &o.SubtotalCents, &o.DeliveryFeeCents, &o.TaxCents, &o.TipCents, &o.GrandTotalCents,
        &o.LoyaltyPointsUsed, &est, &actual, &o.CreatedAt, &o.UpdatedAt)
    if err != nil {
        return model.Order{}, err
    }
    if rider.Valid {
        id := uint64(rider.Int64)
        o.DeliveryPersonID = &id
    }
    if est.Valid {
        t := est.Time
        o.EstimatedDeliveryTime = &t
    }
    if actual.Valid {
        t := actual.Time
        o.ActualDeliveryTime = &t
    }
    return o, nil
}

// CreateTx inserts a new PENDING order and its line items within the scope
// of an existing transaction.  It populates the generated ID on the
// provided order, and appends the initial PENDING audit entry so the trail
// always starts with the creation event.  The caller must commit or
// rollback the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order, items []model.OrderItem) error {
    const q = `INSERT INTO orders (customer_id, restaurant_id, status, subtotal_cents,
               delivery_fee_cents, tax_cents, tip_cents, grand_total_cents,
               loyalty_points_used, estimated_delivery_time)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, o.CustomerID, o.RestaurantID, string(model.StatusPending),
        o.SubtotalCents, o.DeliveryFeeCents, o.TaxCents, o.TipCents, o.GrandTotalCents,
        o.LoyaltyPointsUsed, o.EstimatedDeliveryTime)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    o.Status = model.StatusPending
    if len(items) > 0 {
        query := `INSERT INTO order_items (order_id, name, unit_price_cents, quantity) VALUES `
        args := make([]interface{}, 0, len(items)*4)
        for i, it := range items {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?)"
            args = append(args, o.ID, it.Name, it.UnitPriceCents, it.Quantity)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    return r.AppendStatusUpdateTx(ctx, tx, o.ID, model.StatusPending, o.CustomerID)
}

// GetByID loads a single order.  sql.ErrNoRows when it does not exist.
func (r *OrderRepo) GetByID(ctx context.Context, orderID uint64) (model.Order, error) {
    return scanOrder(r.db.QueryRowContext(ctx,
        `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID))
}

// GetByIDTx is GetByID inside a transaction, locking the order row so the
// status read and the subsequent conditional update serialize with other
// writers.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, orderID uint64) (model.Order, error) {
    return scanOrder(tx.QueryRowContext(ctx,
        `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, orderID))
}

// UpdateStatusTx moves an order from one status to another within the
// provided transaction.  The expected current status is part of the WHERE
// clause; zero affected rows means a concurrent writer got there first and
// ErrConflict is returned.  On success exactly one audit row is appended.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID uint64, from, to model.OrderStatus, updatedBy uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
        string(to), orderID, string(from))
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return r.AppendStatusUpdateTx(ctx, tx, orderID, to, updatedBy)
}

// AppendStatusUpdateTx writes one row of the append-only audit trail.
func (r *OrderRepo) AppendStatusUpdateTx(ctx context.Context, tx *sql.Tx, orderID uint64, status model.OrderStatus, updatedBy uint64) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO order_status_updates (order_id, status, updated_by) VALUES (?, ?, ?)`,
        orderID, string(status), updatedBy)
    return err
}

// ClaimForDeliveryTx atomically assigns a rider to an order.  The claim is
// a single conditional UPDATE: it succeeds only while the order has no
// assignee and is still in READY or PREPARING, so two concurrent claims
// cannot both win.  The losing claim receives ErrConflict.  The status is
// forced to OUT_FOR_DELIVERY and an audit row is appended.
func (r *OrderRepo) ClaimForDeliveryTx(ctx context.Context, tx *sql.Tx, orderID, riderID uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE orders SET delivery_person_id = ?, status = ?
         WHERE id = ? AND delivery_person_id IS NULL AND status IN (?, ?)`,
        riderID, string(model.StatusOutForDelivery), orderID,
        string(model.StatusReady), string(model.StatusPreparing))
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return r.AppendStatusUpdateTx(ctx, tx, orderID, model.StatusOutForDelivery, riderID)
}

// CompleteDeliveryTx moves an order from OUT_FOR_DELIVERY to DELIVERED and
// stamps actual_delivery_time exactly once.  Only the assigned rider may
// complete; a mismatched rider, a prior completion or a concurrent write
// all surface as ErrConflict via the zero-rows path, except for the
// ownership check which is made explicit first so handlers can return 403.
func (r *OrderRepo) CompleteDeliveryTx(ctx context.Context, tx *sql.Tx, orderID, riderID uint64, deliveredAt time.Time) error {
    var assigned sql.NullInt64
    err := tx.QueryRowContext(ctx,
        `SELECT delivery_person_id FROM orders WHERE id = ? FOR UPDATE`, orderID).Scan(&assigned)
    if err != nil {
        return err
    }
    if !assigned.Valid || uint64(assigned.Int64) != riderID {
        return ErrForbidden
    }
    res, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, actual_delivery_time = ?
         WHERE id = ? AND status = ? AND actual_delivery_time IS NULL`,
        string(model.StatusDelivered), deliveredAt.UTC(), orderID, string(model.StatusOutForDelivery))
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return r.AppendStatusUpdateTx(ctx, tx, orderID, model.StatusDelivered, riderID)
}

// ListItems returns the line items of an order in insertion order.
func (r *OrderRepo) ListItems(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, order_id, name, unit_price_cents, quantity FROM order_items WHERE order_id = ? ORDER BY id`,
        orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    items := make([]model.OrderItem, 0)
    for rows.Next() {
        var it model.OrderItem
        if err := rows.Scan(&it.ID, &it.OrderID, &it.Name, &it.UnitPriceCents, &it.Quantity); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// ListStatusUpdates returns the audit trail of an order oldest-first.
func (r *OrderRepo) ListStatusUpdates(ctx context.Context, orderID uint64) ([]model.OrderStatusUpdate, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, order_id, status, updated_by, created_at FROM order_status_updates
         WHERE order_id = ? ORDER BY id`, orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    updates := make([]model.OrderStatusUpdate, 0)
    for rows.Next() {
        var u model.OrderStatusUpdate
        if err := rows.Scan(&u.ID, &u.OrderID, &u.Status, &u.UpdatedBy, &u.CreatedAt); err != nil {
            return nil, err
        }
        updates = append(updates, u)
    }
    return updates, rows.Err()
}

func (r *OrderRepo) listBy(ctx context.Context, column string, id uint64) ([]model.Order, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+orderColumns+` FROM orders WHERE `+column+` = ? ORDER BY created_at DESC`, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    orders := make([]model.Order, 0)
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil {
            return nil, err
        }
        orders = append(orders, o)
    }
    return orders, rows.Err()
}

// ListByCustomer returns a customer's orders, newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error) {
    return r.listBy(ctx, "customer_id", customerID)
}

// ListByRestaurant returns a restaurant's orders, newest first.
func (r *OrderRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Order, error) {
    return r.listBy(ctx, "restaurant_id", restaurantID)
}

// ListByRider returns the orders a rider has claimed, newest first.
func (r *OrderRepo) ListByRider(ctx context.Context, riderID uint64) ([]model.Order, error) {
    return r.listBy(ctx, "delivery_person_id", riderID)
}
