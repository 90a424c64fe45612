package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// The loyalty aggregate (LoyaltyPoints, LifetimePoints, LoyaltyTier,
// TierUpdatedAt) is a denormalized snapshot of the loyalty ledger.
// Every ledger write updates these columns in the same database
// transaction as the ledger insert, so the snapshot cannot drift
// from the ledger's implied balance.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique email address.
//  PasswordHash   – bcrypt hashed password.
//  Role           – role name (CUSTOMER, RESTAURANT, RIDER or ADMIN).
//  Approved       – set for riders once vetted; gates delivery self-accept.
//  LoyaltyPoints  – current spendable point balance.
//  LifetimePoints – monotonically increasing total of earned points.
//  LoyaltyTier    – tier derived from LifetimePoints (see loyalty package).
//  TierUpdatedAt  – when LoyaltyTier last changed (nullable).
//  IsActive       – whether the account is active.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             uint64     // users.id
    Email          string     // users.email
    PasswordHash   string     // users.password_hash
    Role           string     // users.role
    Approved       bool       // users.approved (riders only)
    LoyaltyPoints  int64      // users.loyalty_points
    LifetimePoints int64      // users.lifetime_loyalty_points
    LoyaltyTier    string     // users.loyalty_tier
    TierUpdatedAt  *time.Time // users.tier_updated_at (nullable)
    IsActive       bool       // users.is_active
    CreatedAt      time.Time  // users.created_at
    UpdatedAt      time.Time  // users.updated_at
}

// Roles understood by the application.  Role checks go through these
// constants rather than ad-hoc strings so that the closed set lives in
// one place.
const (
    RoleCustomer   = "CUSTOMER"
    RoleRestaurant = "RESTAURANT"
    RoleRider      = "RIDER"
    RoleAdmin      = "ADMIN"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
