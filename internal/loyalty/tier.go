// Package loyalty implements the pure point and tier arithmetic of the
// rewards program.  Everything here is deterministic and side-effect
// free; persistence lives in the repository layer.
package loyalty

import "math"

// Tier is a named loyalty level derived from lifetime points.
type Tier string

const (
    TierBronze   Tier = "BRONZE"
    TierSilver   Tier = "SILVER"
    TierGold     Tier = "GOLD"
    TierPlatinum Tier = "PLATINUM"
)

// tierThresholds is the authoritative threshold table, ordered ascending.
// The highest threshold less than or equal to the lifetime total wins.
// This table is the single source of truth for tier boundaries; nothing
// else in the codebase may define its own.
var tierThresholds = []struct {
    Tier     Tier
    Lifetime int64
}{
    {TierBronze, 0},
    {TierSilver, 1000},
    {TierGold, 5000},
    {TierPlatinum, 10000},
}

// Benefits describes what a tier grants: a multiplier applied to base
// points on every order, plus display perks.
type Benefits struct {
    PointsMultiplier float64  `json:"points_multiplier"`
    Perks            []string `json:"perks"`
}

var tierBenefits = map[Tier]Benefits{
    TierBronze: {
        PointsMultiplier: 1.0,
        Perks:            []string{"member pricing"},
    },
    TierSilver: {
        PointsMultiplier: 1.2,
        Perks:            []string{"member pricing", "priority support"},
    },
    TierGold: {
        PointsMultiplier: 1.5,
        Perks:            []string{"member pricing", "priority support", "free delivery on orders over $25"},
    },
    TierPlatinum: {
        PointsMultiplier: 2.0,
        Perks:            []string{"member pricing", "priority support", "free delivery", "exclusive offers"},
    },
}

// CalculateTier maps a lifetime point total to a tier.  Negative totals
// cannot occur (lifetime points only grow) but clamp to BRONZE anyway.
func CalculateTier(lifetimePoints int64) Tier {
    tier := TierBronze
    for _, t := range tierThresholds {
        if lifetimePoints >= t.Lifetime {
            tier = t.Tier
        }
    }
    return tier
}

// TierBenefits returns the benefit set for a tier.  An unknown tier
// silently receives BRONZE benefits; that is program policy, not an
// error, so callers never have to handle a failure here.
func TierBenefits(tier Tier) Benefits {
    if b, ok := tierBenefits[tier]; ok {
        return b
    }
    return tierBenefits[TierBronze]
}

// TierRank returns the ordinal position of a tier, BRONZE being 0.
// Unknown tiers rank as BRONZE.  Used for monotonicity checks and for
// sorting in reporting queries.
func TierRank(tier Tier) int {
    for i, t := range tierThresholds {
        if t.Tier == tier {
            return i
        }
    }
    return 0
}

// NextTier returns the tier above the given one together with its lifetime
// threshold.  ok is false for PLATINUM (and unknown tiers rank as BRONZE).
func NextTier(tier Tier) (next Tier, threshold int64, ok bool) {
    i := TierRank(tier)
    if i+1 >= len(tierThresholds) {
        return tier, 0, false
    }
    n := tierThresholds[i+1]
    return n.Tier, n.Lifetime, true
}

// OrderPoints applies the tier multiplier to a base point amount using
// round-half-up.  Base points are never negative.
func OrderPoints(basePoints int64, tier Tier) int64 {
    mult := TierBenefits(tier).PointsMultiplier
    return int64(math.Floor(float64(basePoints)*mult + 0.5))
}

// BasePoints converts an order grand total in cents into base points:
// pointsPerUnit points per full currency unit, fractions discarded.
func BasePoints(grandTotalCents uint32, pointsPerUnit int) int64 {
    if pointsPerUnit < 1 {
        pointsPerUnit = 1
    }
    return int64(grandTotalCents/100) * int64(pointsPerUnit)
}

// DeductExpired computes the balance after expiring points.  A balance
// never goes negative: expiring more points than currently held floors
// the balance at zero (the shortfall was already spent).
func DeductExpired(balance, points int64) int64 {
    b := balance - points
    if b < 0 {
        return 0
    }
    return b
}
