package handler

import (
    "context"
    "database/sql"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/config"
    "github.com/yumrun/yumrun-backend/internal/loyalty"
    "github.com/yumrun/yumrun-backend/internal/model"
    "github.com/yumrun/yumrun-backend/internal/repository"
)

// LoyaltyHandler serves the loyalty program endpoints: account overview,
// ledger history, the reward catalog and redemption for customers, plus
// manual adjustment and the expiry batch for admins.  Every balance
// mutation pairs the ledger insert with the cached-balance write on the
// user row in one database transaction.
type LoyaltyHandler struct {
    LCfg   config.LoyaltyConfig
    Users  *repository.UserRepo
    Ledger *repository.LoyaltyRepo
}

func NewLoyaltyHandler(lcfg config.LoyaltyConfig, u *repository.UserRepo, l *repository.LoyaltyRepo) *LoyaltyHandler {
    return &LoyaltyHandler{LCfg: lcfg, Users: u, Ledger: l}
}

// ----- DTOs -----

type redeemReq struct {
    RewardID uint64 `json:"reward_id"`
}

type adjustReq struct {
    UserID      uint64 `json:"user_id"`
    Points      int64  `json:"points"` // signed; positive credits, negative debits
    Description string `json:"description"`
}

type rewardReq struct {
    Name           string `json:"name"`
    Description    string `json:"description"`
    PointsRequired int64  `json:"points_required"`
    ValueCents     uint32 `json:"value_cents"`
    Type           string `json:"type"`
    Active         *bool  `json:"active"`
}

type txnResp struct {
    ID          uint64     `json:"id"`
    Points      int64      `json:"points"`
    Type        string     `json:"type"`
    Source      string     `json:"source"`
    Description string     `json:"description"`
    ReferenceID *uint64    `json:"reference_id,omitempty"`
    Balance     int64      `json:"balance"`
    ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
    CreatedAt   time.Time  `json:"created_at"`
}

func toTxnResp(t model.LoyaltyTransaction) txnResp {
    return txnResp{
        ID:          t.ID,
        Points:      t.Points,
        Type:        t.Type,
        Source:      t.Source,
        Description: t.Description,
        ReferenceID: t.ReferenceID,
        Balance:     t.Balance,
        ExpiryDate:  t.ExpiryDate,
        CreatedAt:   t.CreatedAt,
    }
}

// Info returns the caller's loyalty account: balance, lifetime total, tier
// with its benefits, and how far the next tier is.
func (h *LoyaltyHandler) Info(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return writeRepoError(c, err, "load user failed")
    }

    tier := loyalty.Tier(u.LoyaltyTier)
    resp := echo.Map{
        "points":          u.LoyaltyPoints,
        "lifetime_points": u.LifetimePoints,
        "tier":            tier,
        "benefits":        loyalty.TierBenefits(tier),
    }
    if next, threshold, ok := loyalty.NextTier(tier); ok {
        resp["next_tier"] = next
        resp["points_to_next_tier"] = threshold - u.LifetimePoints
    }
    if u.TierUpdatedAt != nil {
        resp["tier_updated_at"] = u.TierUpdatedAt
    }
    return c.JSON(http.StatusOK, resp)
}

// Transactions returns the caller's ledger history, newest first.  The
// optional ?limit= query caps the page size.
func (h *LoyaltyHandler) Transactions(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    txns, err := h.Ledger.ListByUser(ctx, uid, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list transactions failed"})
    }
    out := make([]txnResp, 0, len(txns))
    for _, t := range txns {
        out = append(out, toTxnResp(t))
    }
    return c.JSON(http.StatusOK, echo.Map{"transactions": out})
}

// Rewards lists the active reward catalog, cheapest first.
func (h *LoyaltyHandler) Rewards(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rewards, err := h.Ledger.ListActiveRewards(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list rewards failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"rewards": rewards})
}

// Redeem exchanges points for a catalog reward.  The REDEEM ledger row and
// the balance update commit together; a balance below the reward's cost
// rejects the request without touching either.
func (h *LoyaltyHandler) Redeem(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req redeemReq
    if err := c.Bind(&req); err != nil || req.RewardID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reward_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    reward, err := h.Ledger.GetReward(ctx, req.RewardID)
    if err != nil {
        return writeRepoError(c, err, "load reward failed")
    }
    if !reward.Active {
        return writeRepoError(c, repository.ErrRewardInactive, "")
    }

    tx, err := h.Ledger.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    points, lifetime, tier, err := h.Users.GetLoyaltyForUpdateTx(ctx, tx, uid)
    if err != nil {
        return writeRepoError(c, err, "load balance failed")
    }
    if points < reward.PointsRequired {
        return writeRepoError(c, repository.ErrInsufficientPoints, "")
    }
    newBalance := points - reward.PointsRequired

    entry := &model.LoyaltyTransaction{
        UserID:      uid,
        Points:      -reward.PointsRequired,
        Type:        model.TxnRedeem,
        Source:      model.SourceOrder,
        Description: fmt.Sprintf("Redeemed reward: %s", reward.Name),
        ReferenceID: &reward.ID,
        Balance:     newBalance,
    }
    if err := h.Ledger.InsertTx(ctx, tx, entry); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record redemption failed"})
    }
    // Redemptions spend points; lifetime total and tier never move.
    if err := h.Users.SetLoyaltyTx(ctx, tx, uid, newBalance, lifetime, tier, tier); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update balance failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    return c.JSON(http.StatusOK, echo.Map{
        "transaction": toTxnResp(*entry),
        "reward":      reward,
        "balance":     newBalance,
    })
}

// Adjust applies a signed manual correction to a user's balance (admin
// only).  Credits raise lifetime points and can promote the tier; debits
// cannot push the spendable balance below zero and never demote.
func (h *LoyaltyHandler) Adjust(c echo.Context) error {
    adminID := getUserID(c)
    var req adjustReq
    if err := c.Bind(&req); err != nil || req.UserID == 0 || req.Points == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and non-zero points required"})
    }
    desc := strings.TrimSpace(req.Description)
    if desc == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "description required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tx, err := h.Ledger.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    points, lifetime, tier, err := h.Users.GetLoyaltyForUpdateTx(ctx, tx, req.UserID)
    if err != nil {
        return writeRepoError(c, err, "load balance failed")
    }
    newBalance := points + req.Points
    if newBalance < 0 {
        return writeRepoError(c, repository.ErrInsufficientPoints, "")
    }
    newLifetime := lifetime
    if req.Points > 0 {
        newLifetime += req.Points
    }
    newTier := loyalty.CalculateTier(newLifetime)

    entry := &model.LoyaltyTransaction{
        UserID:      req.UserID,
        Points:      req.Points,
        Type:        model.TxnAdjust,
        Source:      model.SourceAdmin,
        Description: desc,
        Balance:     newBalance,
        AdjustedBy:  &adminID,
    }
    if err := h.Ledger.InsertTx(ctx, tx, entry); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record adjustment failed"})
    }
    if err := h.Users.SetLoyaltyTx(ctx, tx, req.UserID, newBalance, newLifetime, tier, string(newTier)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update balance failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    return c.JSON(http.StatusOK, echo.Map{
        "transaction": toTxnResp(*entry),
        "balance":     newBalance,
        "tier":        newTier,
    })
}

// ProcessExpired runs the point-expiry batch (admin only) and reports how
// many EARN rows were expired.  Safe to call repeatedly.
func (h *LoyaltyHandler) ProcessExpired(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
    defer cancel()

    n, err := h.Ledger.ProcessExpired(ctx, time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expiry batch failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"processed": n})
}

// CreateReward adds a catalog entry (admin only).
func (h *LoyaltyHandler) CreateReward(c echo.Context) error {
    var req rewardReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" || req.PointsRequired <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and positive points_required required"})
    }
    rtype := strings.ToLower(strings.TrimSpace(req.Type))
    switch rtype {
    case model.RewardDiscount, model.RewardFreeDelivery, model.RewardSpecial, model.RewardGift:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown reward type"})
    }
    active := true
    if req.Active != nil {
        active = *req.Active
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    w := &model.LoyaltyReward{
        Name:           req.Name,
        Description:    strings.TrimSpace(req.Description),
        PointsRequired: req.PointsRequired,
        ValueCents:     req.ValueCents,
        Type:           rtype,
        Active:         active,
    }
    if err := h.Ledger.CreateReward(ctx, w); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reward failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"reward": w})
}

// earnOrderPointsTx credits a customer for a delivered order inside the
// caller's transaction: base points come from the grand total, the
// multiplier from the customer's tier at the moment of earning, and the
// EARN row carries an expiry date so the batch can reclaim it later.
// Returns the number of points credited.
func earnOrderPointsTx(ctx context.Context, tx *sql.Tx, users *repository.UserRepo, ledger *repository.LoyaltyRepo,
    lcfg config.LoyaltyConfig, o model.Order, now time.Time) (int64, error) {
    base := loyalty.BasePoints(o.GrandTotalCents, lcfg.PointsPerUnit)
    if base <= 0 {
        return 0, nil
    }

    points, lifetime, tier, err := users.GetLoyaltyForUpdateTx(ctx, tx, o.CustomerID)
    if err != nil {
        return 0, err
    }
    earned := loyalty.OrderPoints(base, loyalty.Tier(tier))
    if earned <= 0 {
        return 0, nil
    }

    newBalance := points + earned
    newLifetime := lifetime + earned
    newTier := loyalty.CalculateTier(newLifetime)
    expiry := now.UTC().AddDate(0, lcfg.ExpiryMonths, 0)

    entry := &model.LoyaltyTransaction{
        UserID:       o.CustomerID,
        RestaurantID: &o.RestaurantID,
        Points:       earned,
        Type:         model.TxnEarn,
        Source:       model.SourceOrder,
        Description:  fmt.Sprintf("Points earned for order #%d", o.ID),
        ReferenceID:  &o.ID,
        Balance:      newBalance,
        ExpiryDate:   &expiry,
    }
    if err := ledger.InsertTx(ctx, tx, entry); err != nil {
        return 0, err
    }
    if err := users.SetLoyaltyTx(ctx, tx, o.CustomerID, newBalance, newLifetime, tier, string(newTier)); err != nil {
        return 0, err
    }
    return earned, nil
}
