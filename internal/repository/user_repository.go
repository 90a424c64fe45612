package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yumrun/yumrun-backend/internal/loyalty"
	"github.com/yumrun/yumrun-backend/internal/model"
	"github.com/yumrun/yumrun-backend/internal/utils"
)

// UserRepo provides access to the users table, including the denormalized
// loyalty aggregate columns.  All loyalty-affecting updates go through the
// Tx variants so callers can pair them with a ledger insert inside one
// database transaction.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id,email,password_hash,role,approved,loyalty_points,lifetime_loyalty_points,loyalty_tier,tier_updated_at,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var tierUpdated sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Approved,
		&u.LoyaltyPoints, &u.LifetimePoints, &u.LoyaltyTier, &tierUpdated,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if tierUpdated.Valid {
		t := tierUpdated.Time
		u.TierUpdatedAt = &t
	}
	return u, nil
}

// Create inserts a user with an empty loyalty history and returns its ID.
// New accounts start at BRONZE with zero points.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, loyalty_tier) VALUES (?,?,?,?)",
		email, hash, role, string(loyalty.TierBronze))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetLoyaltyForUpdateTx loads the loyalty aggregate for a user inside the
// given transaction with a row lock (SELECT ... FOR UPDATE).  Concurrent
// ledger mutations against the same user serialize on this lock, which is
// what keeps the cached balance consistent with the ledger.
func (r *UserRepo) GetLoyaltyForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (points, lifetime int64, tier string, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT loyalty_points, lifetime_loyalty_points, loyalty_tier FROM users WHERE id=? FOR UPDATE",
		userID).Scan(&points, &lifetime, &tier)
	return
}

// SetLoyaltyTx writes the loyalty aggregate inside the given transaction.
// When the recomputed tier differs from the stored one, tier_updated_at is
// stamped; otherwise it is left alone so the timestamp reflects the last
// actual tier change.
func (r *UserRepo) SetLoyaltyTx(ctx context.Context, tx *sql.Tx, userID uint64, points, lifetime int64, oldTier, newTier string) error {
	if newTier != oldTier {
		_, err := tx.ExecContext(ctx,
			"UPDATE users SET loyalty_points=?, lifetime_loyalty_points=?, loyalty_tier=?, tier_updated_at=? WHERE id=?",
			points, lifetime, newTier, time.Now().UTC(), userID)
		return err
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET loyalty_points=?, lifetime_loyalty_points=? WHERE id=?",
		points, lifetime, userID)
	return err
}

// SetApproved toggles the rider vetting flag.  Only meaningful for RIDER
// accounts; the delivery self-accept path refuses unapproved riders.
func (r *UserRepo) SetApproved(ctx context.Context, userID uint64, approved bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET approved=? WHERE id=? AND role=?", approved, userID, model.RoleRider)
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
