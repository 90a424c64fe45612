package repository

import (
    "context"
    "database/sql"

    "github.com/yumrun/yumrun-backend/internal/model"
)

// NotificationRepo persists in-app notifications.  Rows are written by the
// queue consumer and read by customers; there is no update path other
// than marking a notification read.
type NotificationRepo struct {
    db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification and populates its generated ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO notifications (user_id, title, message, order_id) VALUES (?, ?, ?, ?)`,
        n.UserID, n.Title, n.Message, n.OrderID)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    n.ID = uint64(id)
    return nil
}

// ListByUser returns a user's notifications newest-first, capped at limit.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, user_id, title, message, order_id, read_at, created_at
         FROM notifications WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    items := make([]model.Notification, 0)
    for rows.Next() {
        var n model.Notification
        var orderID sql.NullInt64
        var readAt sql.NullTime
        if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &orderID, &readAt, &n.CreatedAt); err != nil {
            return nil, err
        }
        if orderID.Valid {
            v := uint64(orderID.Int64)
            n.OrderID = &v
        }
        if readAt.Valid {
            v := readAt.Time
            n.ReadAt = &v
        }
        items = append(items, n)
    }
    return items, rows.Err()
}

// MarkRead stamps read_at for a notification owned by the user.  Zero
// affected rows means the notification does not exist, belongs to someone
// else, or was already read; callers treat all three as not found.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, userID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE notifications SET read_at = NOW() WHERE id = ? AND user_id = ? AND read_at IS NULL`,
        notificationID, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
