package handler

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/config"
    "github.com/yumrun/yumrun-backend/internal/model"
    "github.com/yumrun/yumrun-backend/internal/repository"
)

func TestOrderTotals(t *testing.T) {
    items := []orderItemReq{
        {Name: "pad thai", UnitPriceCents: 1250, Quantity: 2},
        {Name: "spring rolls", UnitPriceCents: 600, Quantity: 1},
    }
    subtotal, preTotal, err := orderTotals(items, 300, 250, 500)
    if err != nil {
        t.Fatalf("orderTotals: %v", err)
    }
    if subtotal != 3100 {
        t.Errorf("subtotal = %d, want 3100", subtotal)
    }
    if preTotal != 4150 {
        t.Errorf("preTotal = %d, want 4150", preTotal)
    }
}

func TestOrderTotalsRejectsWraparound(t *testing.T) {
    // 3000000 * 2000 = 6e9 wraps past 2^32 in 32-bit arithmetic; summing in
    // 64-bit space against the ceiling must reject it instead.
    cases := []struct {
        name  string
        items []orderItemReq
        fee   uint32
    }{
        {
            name:  "single line overflows",
            items: []orderItemReq{{Name: "caviar", UnitPriceCents: 3_000_000, Quantity: 2000}},
        },
        {
            name: "subtotal accumulates past the cap",
            items: []orderItemReq{
                {Name: "a", UnitPriceCents: 90_000_000, Quantity: 1},
                {Name: "b", UnitPriceCents: 90_000_000, Quantity: 1},
            },
        },
        {
            name:  "fees push past the cap",
            items: []orderItemReq{{Name: "a", UnitPriceCents: 99_999_999, Quantity: 1}},
            fee:   4_000_000,
        },
    }
    for _, tc := range cases {
        if _, _, err := orderTotals(tc.items, tc.fee, 0, 0); err == nil {
            t.Errorf("%s: orderTotals accepted an overflowing order", tc.name)
        }
    }
}

func TestOrderTotalsRejectsBadItems(t *testing.T) {
    if _, _, err := orderTotals([]orderItemReq{{Name: "", Quantity: 1}}, 0, 0, 0); err == nil {
        t.Error("accepted an item without a name")
    }
    if _, _, err := orderTotals([]orderItemReq{{Name: "soup", Quantity: 0}}, 0, 0, 0); err == nil {
        t.Error("accepted an item with zero quantity")
    }
}

func TestCreateRejectsOverflowingOrder(t *testing.T) {
    // Validation fails before any repository call, so nil-DB repos suffice.
    h := NewOrderHandler(config.LoyaltyConfig{PointsPerUnit: 1, ExpiryMonths: 12},
        repository.NewOrderRepo(nil), repository.NewUserRepo(nil), repository.NewLoyaltyRepo(nil))

    body := `{"restaurant_id":4,"items":[{"name":"caviar","unit_price_cents":3000000,"quantity":2000}]}`
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", float64(9))
    c.Set("role", model.RoleCustomer)

    if err := h.Create(c); err != nil {
        t.Fatalf("Create: %v", err)
    }
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
    }
    if !strings.Contains(rec.Body.String(), "maximum order amount") {
        t.Errorf("body = %s, want maximum order amount error", rec.Body.String())
    }
}

func orderRows(o model.Order) *sqlmock.Rows {
    return sqlmock.NewRows([]string{
        "id", "customer_id", "restaurant_id", "delivery_person_id", "status",
        "subtotal_cents", "delivery_fee_cents", "tax_cents", "tip_cents", "grand_total_cents",
        "loyalty_points_used", "estimated_delivery_time", "actual_delivery_time",
        "created_at", "updated_at",
    }).AddRow(o.ID, o.CustomerID, o.RestaurantID, nil, string(o.Status),
        o.SubtotalCents, o.DeliveryFeeCents, o.TaxCents, o.TipCents, o.GrandTotalCents,
        o.LoyaltyPointsUsed, nil, nil, o.CreatedAt, o.UpdatedAt)
}

// A restaurant cancelling through the status endpoint must refund points
// redeemed at placement, exactly like the customer cancel endpoint: the
// ADJUST/REFUND ledger row and the balance write happen inside the same
// transaction as the status change.
func TestUpdateStatusCancelRefundsRedeemedPoints(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()

    now := time.Now().UTC()
    order := model.Order{
        ID:                5,
        CustomerID:        9,
        RestaurantID:      4,
        Status:            model.StatusPending,
        SubtotalCents:     2000,
        GrandTotalCents:   1800,
        LoyaltyPointsUsed: 200,
        CreatedAt:         now,
        UpdatedAt:         now,
    }

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE id = (.+) FOR UPDATE").
        WithArgs(order.ID).
        WillReturnRows(orderRows(order))
    mock.ExpectExec("UPDATE orders SET status = ").
        WithArgs(string(model.StatusCancelled), order.ID, string(model.StatusPending)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO order_status_updates").
        WithArgs(order.ID, string(model.StatusCancelled), order.RestaurantID).
        WillReturnResult(sqlmock.NewResult(1, 1))
    // The refund block: lock the customer, append the ledger row, write the
    // restored balance.
    mock.ExpectQuery("SELECT loyalty_points, lifetime_loyalty_points, loyalty_tier FROM users").
        WithArgs(order.CustomerID).
        WillReturnRows(sqlmock.NewRows([]string{"loyalty_points", "lifetime_loyalty_points", "loyalty_tier"}).
            AddRow(100, 1500, "SILVER"))
    mock.ExpectExec("INSERT INTO loyalty_transactions").
        WillReturnResult(sqlmock.NewResult(77, 1))
    mock.ExpectExec("UPDATE users SET loyalty_points=").
        WithArgs(int64(300), int64(1500), order.CustomerID).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    h := NewOrderHandler(config.LoyaltyConfig{PointsPerUnit: 1, ExpiryMonths: 12},
        repository.NewOrderRepo(db), repository.NewUserRepo(db), repository.NewLoyaltyRepo(db))

    e := echo.New()
    req := httptest.NewRequest(http.MethodPatch, "/v1/orders/5/status",
        strings.NewReader(`{"status":"CANCELLED"}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues("5")
    c.Set("user_id", float64(order.RestaurantID))
    c.Set("role", model.RoleRestaurant)

    if err := h.UpdateStatus(c); err != nil {
        t.Fatalf("UpdateStatus: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("refund sequence not executed: %v", err)
    }
}

// Cancelling an order placed without points must not touch the ledger.
func TestUpdateStatusCancelWithoutRedemptionSkipsLedger(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()

    now := time.Now().UTC()
    order := model.Order{
        ID:              6,
        CustomerID:      9,
        RestaurantID:    4,
        Status:          model.StatusPending,
        SubtotalCents:   2000,
        GrandTotalCents: 2000,
        CreatedAt:       now,
        UpdatedAt:       now,
    }

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE id = (.+) FOR UPDATE").
        WithArgs(order.ID).
        WillReturnRows(orderRows(order))
    mock.ExpectExec("UPDATE orders SET status = ").
        WithArgs(string(model.StatusCancelled), order.ID, string(model.StatusPending)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO order_status_updates").
        WithArgs(order.ID, string(model.StatusCancelled), order.RestaurantID).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectCommit()

    h := NewOrderHandler(config.LoyaltyConfig{PointsPerUnit: 1, ExpiryMonths: 12},
        repository.NewOrderRepo(db), repository.NewUserRepo(db), repository.NewLoyaltyRepo(db))

    e := echo.New()
    req := httptest.NewRequest(http.MethodPatch, "/v1/orders/6/status",
        strings.NewReader(`{"status":"CANCELLED"}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues("6")
    c.Set("user_id", float64(order.RestaurantID))
    c.Set("role", model.RoleRestaurant)

    if err := h.UpdateStatus(c); err != nil {
        t.Fatalf("UpdateStatus: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unexpected statements: %v", err)
    }
}
