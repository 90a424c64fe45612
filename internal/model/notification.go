package model

import "time"

// Notification is an in-app message created by the queue consumer when an
// order status event arrives.  Delivery is best-effort; a lost event
// loses the notification but never the underlying status change.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – recipient.
//  Title     – short headline.
//  Message   – body text.
//  OrderID   – related order, when applicable (nullable).
//  ReadAt    – when the user read it (null if unread).
//  CreatedAt – timestamp of creation.
type Notification struct {
    ID        uint64     // notifications.id
    UserID    uint64     // notifications.user_id
    Title     string     // notifications.title
    Message   string     // notifications.message
    OrderID   *uint64    // notifications.order_id (nullable)
    ReadAt    *time.Time // notifications.read_at (nullable)
    CreatedAt time.Time  // notifications.created_at
}
