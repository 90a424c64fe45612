package repository

import (
    "context"
    "database/sql"
    "log"
    "time"

    "github.com/yumrun/yumrun-backend/internal/loyalty"
    "github.com/yumrun/yumrun-backend/internal/model"
)

// LoyaltyRepo provides access to the append-only loyalty ledger and the
// reward catalog.  Ledger rows are inserted through InsertTx so the caller
// can pair the insert with the cached-balance update on the user row in a
// single database transaction; nothing in this repository ever updates or
// deletes a ledger row apart from the expiry batch flipping
// processed_expiry.  All timestamps are stored in UTC.
type LoyaltyRepo struct {
    db *sql.DB
}

// NewLoyaltyRepo returns a new LoyaltyRepo bound to the given database.
func NewLoyaltyRepo(db *sql.DB) *LoyaltyRepo { return &LoyaltyRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span the ledger and the users table.
func (r *LoyaltyRepo) DB() *sql.DB { return r.db }

// InsertTx appends one ledger row within the provided transaction.  The
// generated ID is populated on the record.  Balance must already be the
// post-application snapshot; this method performs no arithmetic.
func (r *LoyaltyRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.LoyaltyTransaction) error {
    const q = `INSERT INTO loyalty_transactions
               (user_id, restaurant_id, points, type, source, description, reference_id,
                balance, expiry_date, processed_expiry, adjusted_by)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, t.UserID, t.RestaurantID, t.Points, t.Type, t.Source,
        t.Description, t.ReferenceID, t.Balance, t.ExpiryDate, t.ProcessedExpiry, t.AdjustedBy)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

const txnColumns = `id, user_id, restaurant_id, points, type, source, description,
               reference_id, balance, expiry_date, processed_expiry, adjusted_by, created_at`

func scanTxn(rows *sql.Rows) (model.LoyaltyTransaction, error) {
    var t model.LoyaltyTransaction
    var restaurantID, referenceID, adjustedBy sql.NullInt64
    var expiry sql.NullTime
    err := rows.Scan(&t.ID, &t.UserID, &restaurantID, &t.Points, &t.Type, &t.Source,
        &t.Description, &referenceID, &t.Balance, &expiry, &t.ProcessedExpiry, &adjustedBy, &t.CreatedAt)
    if err != nil {
        return model.LoyaltyTransaction{}, err
    }
    if restaurantID.Valid {
        v := uint64(restaurantID.Int64)
        t.RestaurantID = &v
    }
    if referenceID.Valid {
        v := uint64(referenceID.Int64)
        t.ReferenceID = &v
    }
    if adjustedBy.Valid {
        v := uint64(adjustedBy.Int64)
        t.AdjustedBy = &v
    }
    if expiry.Valid {
        v := expiry.Time
        t.ExpiryDate = &v
    }
    return t, nil
}

// ListByUser returns a user's ledger entries newest-first, capped at limit.
func (r *LoyaltyRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.LoyaltyTransaction, error) {
    if limit <= 0 || limit > 500 {
        limit = 100
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+txnColumns+` FROM loyalty_transactions WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
        userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    txns := make([]model.LoyaltyTransaction, 0)
    for rows.Next() {
        t, err := scanTxn(rows)
        if err != nil {
            return nil, err
        }
        txns = append(txns, t)
    }
    return txns, rows.Err()
}

// GetReward loads a catalog entry by ID.  sql.ErrNoRows when missing.
func (r *LoyaltyRepo) GetReward(ctx context.Context, rewardID uint64) (model.LoyaltyReward, error) {
    var w model.LoyaltyReward
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, description, points_required, value_cents, type, active, created_at
         FROM loyalty_rewards WHERE id = ?`, rewardID).
        Scan(&w.ID, &w.Name, &w.Description, &w.PointsRequired, &w.ValueCents, &w.Type, &w.Active, &w.CreatedAt)
    return w, err
}

// ListActiveRewards returns the redeemable catalog, cheapest first.
func (r *LoyaltyRepo) ListActiveRewards(ctx context.Context) ([]model.LoyaltyReward, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, name, description, points_required, value_cents, type, active, created_at
         FROM loyalty_rewards WHERE active = 1 ORDER BY points_required`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    rewards := make([]model.LoyaltyReward, 0)
    for rows.Next() {
        var w model.LoyaltyReward
        if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.PointsRequired, &w.ValueCents,
            &w.Type, &w.Active, &w.CreatedAt); err != nil {
            return nil, err
        }
        rewards = append(rewards, w)
    }
    return rewards, rows.Err()
}

// CreateReward inserts a catalog entry and returns its ID.
func (r *LoyaltyRepo) CreateReward(ctx context.Context, w *model.LoyaltyReward) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO loyalty_rewards (name, description, points_required, value_cents, type, active)
         VALUES (?, ?, ?, ?, ?, ?)`,
        w.Name, w.Description, w.PointsRequired, w.ValueCents, w.Type, w.Active)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    w.ID = uint64(id)
    return nil
}

// expiredEarn is the slice of an EARN row the expiry batch needs.
type expiredEarn struct {
    ID     uint64
    UserID uint64
    Points int64
}

// ProcessExpired runs the point-expiry batch: every EARN row whose expiry
// date has passed and which has not yet been processed gets a compensating
// EXPIRE row.  Each row is handled in its own transaction — lock the user,
// floor the new balance at zero, insert the EXPIRE row, write the cached
// balance, flip processed_expiry — so one bad row aborts only itself and
// the scan continues.  The processed_expiry flag makes the batch
// idempotent: a re-run (or a resumed run after a crash) finds nothing left
// to do for rows already committed.  Returns the number of rows processed.
func (r *LoyaltyRepo) ProcessExpired(ctx context.Context, now time.Time) (int, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, user_id, points FROM loyalty_transactions
         WHERE type = ? AND processed_expiry = 0 AND expiry_date IS NOT NULL AND expiry_date < ?
         ORDER BY id`,
        model.TxnEarn, now.UTC())
    if err != nil {
        return 0, err
    }
    var earns []expiredEarn
    for rows.Next() {
        var e expiredEarn
        if scanErr := rows.Scan(&e.ID, &e.UserID, &e.Points); scanErr != nil {
            rows.Close()
            return 0, scanErr
        }
        earns = append(earns, e)
    }
    if err := rows.Close(); err != nil {
        return 0, err
    }

    processed := 0
    for _, e := range earns {
        if err := r.expireOne(ctx, e); err != nil {
            log.Printf("loyalty: expire transaction %d failed: %v", e.ID, err)
            continue
        }
        processed++
    }
    return processed, nil
}

// expireOne applies the compensating EXPIRE entry for a single EARN row
// inside one transaction.
func (r *LoyaltyRepo) expireOne(ctx context.Context, e expiredEarn) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var balance int64
    if err := tx.QueryRowContext(ctx,
        `SELECT loyalty_points FROM users WHERE id = ? FOR UPDATE`, e.UserID).Scan(&balance); err != nil {
        return err
    }
    newBalance := loyalty.DeductExpired(balance, e.Points)

    // Re-check the flag under the transaction; a concurrent batch run may
    // have processed this row between the scan and now.
    res, err := tx.ExecContext(ctx,
        `UPDATE loyalty_transactions SET processed_expiry = 1 WHERE id = ? AND processed_expiry = 0`, e.ID)
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

    expire := &model.LoyaltyTransaction{
        UserID:      e.UserID,
        Points:      -e.Points,
        Type:        model.TxnExpire,
        Source:      model.SourceSystem,
        Description: "Points expired",
        ReferenceID: &e.ID,
        Balance:     newBalance,
    }
    if err := r.InsertTx(ctx, tx, expire); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE users SET loyalty_points = ? WHERE id = ?`, newBalance, e.UserID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
