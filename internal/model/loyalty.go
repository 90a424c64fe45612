package model

import "time"

// Transaction kinds recorded in the loyalty ledger.
const (
    TxnEarn   = "EARN"
    TxnRedeem = "REDEEM"
    TxnAdjust = "ADJUST"
    TxnExpire = "EXPIRE"
)

// Sources describing what caused a ledger entry.
const (
    SourceOrder     = "ORDER"
    SourceRefund    = "REFUND"
    SourceAdmin     = "ADMIN"
    SourceSystem    = "SYSTEM"
    SourcePromotion = "PROMOTION"
)

// LoyaltyTransaction is one row of the append-only loyalty ledger.  Rows
// are never deleted and never mutated except for flipping
// ProcessedExpiry once the expiry batch has generated the compensating
// EXPIRE entry for an EARN row.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owner of the points.
//  RestaurantID    – optional restaurant scope (nullable).
//  Points          – signed delta; positive for EARN and credit ADJUST,
//                    negative for REDEEM, EXPIRE and debit ADJUST.
//  Type            – EARN, REDEEM, ADJUST or EXPIRE.
//  Source          – ORDER, REFUND, ADMIN, SYSTEM or PROMOTION.
//  Description     – human-readable summary.
//  ReferenceID     – optional link to the originating order or entity.
//  Balance         – the user's balance after this row was applied.  A
//                    denormalized snapshot; the ledger sum is authoritative.
//  ExpiryDate      – when the earned points lapse (EARN rows only).
//  ProcessedExpiry – true once an EXPIRE row was generated for this EARN.
//  AdjustedBy      – admin who performed an ADJUST (nullable otherwise).
//  CreatedAt       – timestamp of creation.
type LoyaltyTransaction struct {
    ID              uint64     // loyalty_transactions.id
    UserID          uint64     // loyalty_transactions.user_id
    RestaurantID    *uint64    // loyalty_transactions.restaurant_id (nullable)
    Points          int64      // loyalty_transactions.points
    Type            string     // loyalty_transactions.type
    Source          string     // loyalty_transactions.source
    Description     string     // loyalty_transactions.description
    ReferenceID     *uint64    // loyalty_transactions.reference_id (nullable)
    Balance         int64      // loyalty_transactions.balance
    ExpiryDate      *time.Time // loyalty_transactions.expiry_date (nullable)
    ProcessedExpiry bool       // loyalty_transactions.processed_expiry
    AdjustedBy      *uint64    // loyalty_transactions.adjusted_by (nullable)
    CreatedAt       time.Time  // loyalty_transactions.created_at
}

// Reward catalog entry types.
const (
    RewardDiscount     = "discount"
    RewardFreeDelivery = "free_delivery"
    RewardSpecial      = "special"
    RewardGift         = "gift"
)

// LoyaltyReward is an admin-managed catalog entry that customers redeem
// points against.  Catalog rows have a lifecycle independent of the
// ledger; deactivating a reward does not touch past REDEEM entries.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name, recorded on REDEEM ledger rows.
//  Description    – display description.
//  PointsRequired – cost of the reward in points.
//  ValueCents     – currency value for discount-style rewards.
//  Type           – discount, free_delivery, special or gift.
//  Active         – whether the reward is currently redeemable.
//  CreatedAt      – timestamp of creation.
type LoyaltyReward struct {
    ID             uint64    // loyalty_rewards.id
    Name           string    // loyalty_rewards.name
    Description    string    // loyalty_rewards.description
    PointsRequired int64     // loyalty_rewards.points_required
    ValueCents     uint32    // loyalty_rewards.value_cents
    Type           string    // loyalty_rewards.type
    Active         bool      // loyalty_rewards.active
    CreatedAt      time.Time // loyalty_rewards.created_at
}
