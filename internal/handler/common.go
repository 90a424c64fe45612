package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/repository"
)

// getUserID normalizes the user_id context value set by the JWT middleware.
// Numeric JWT claims decode as float64; a zero return means unauthenticated.
func getUserID(c echo.Context) uint64 {
    switch v := c.Get("user_id").(type) {
    case float64:
        return uint64(v)
    case uint64:
        return v
    case int64:
        return uint64(v)
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// getRole returns the role claim set by the JWT middleware, or "".
func getRole(c echo.Context) string {
    if r, ok := c.Get("role").(string); ok {
        return r
    }
    return ""
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// writeRepoError maps repository sentinel errors onto HTTP responses.  The
// fallback message is used for anything unexpected, reported as a 500.
func writeRepoError(c echo.Context, err error, fallback string) error {
    switch {
    case errors.Is(err, sql.ErrNoRows):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
    case errors.Is(err, repository.ErrInsufficientPoints):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient points"})
    case errors.Is(err, repository.ErrRewardInactive):
        return c.JSON(http.StatusConflict, echo.Map{"error": "reward not active"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
    }
}
