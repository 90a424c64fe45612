package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/repository"
)

// NotificationHandler serves the in-app notifications written by the queue
// consumer.
type NotificationHandler struct {
    Notifs *repository.NotificationRepo
}

func NewNotificationHandler(n *repository.NotificationRepo) *NotificationHandler {
    return &NotificationHandler{Notifs: n}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Notifs.ListByUser(ctx, uid, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list notifications failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkRead stamps a notification as read.  Already-read and foreign
// notifications both surface as 404.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    uid := getUserID(c)
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Notifs.MarkRead(ctx, id, uid); err != nil {
        return writeRepoError(c, err, "mark read failed")
    }
    return c.NoContent(http.StatusNoContent)
}
