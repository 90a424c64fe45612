package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/repository"
)

// AdminHandler groups admin-only account operations.  Loyalty and reward
// administration lives on LoyaltyHandler.
type AdminHandler struct {
    Users *repository.UserRepo
}

func NewAdminHandler(u *repository.UserRepo) *AdminHandler {
    return &AdminHandler{Users: u}
}

type approveReq struct {
    Approved *bool `json:"approved"`
}

// ApproveRider sets or clears the rider vetting flag.  Non-rider accounts
// surface as 404.
func (h *AdminHandler) ApproveRider(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rider id"})
    }
    var req approveReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    approved := true
    if req.Approved != nil {
        approved = *req.Approved
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.SetApproved(ctx, id, approved); err != nil {
        return writeRepoError(c, err, "update rider failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"rider_id": id, "approved": approved})
}
