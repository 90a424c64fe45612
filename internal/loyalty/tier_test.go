package loyalty

import "testing"

func TestCalculateTier(t *testing.T) {
    tests := []struct {
        lifetime int64
        want     Tier
    }{
        {0, TierBronze},
        {999, TierBronze},
        {1000, TierSilver},
        {4999, TierSilver},
        {5000, TierGold},
        {9999, TierGold},
        {10000, TierPlatinum},
        {250000, TierPlatinum},
        {-50, TierBronze},
    }
    for _, tc := range tests {
        if got := CalculateTier(tc.lifetime); got != tc.want {
            t.Errorf("CalculateTier(%d) = %s, want %s", tc.lifetime, got, tc.want)
        }
    }
}

func TestCalculateTierMonotonic(t *testing.T) {
    // Walking lifetime totals upward must never decrease the tier rank.
    prev := TierRank(CalculateTier(0))
    for p := int64(0); p <= 12000; p += 37 {
        rank := TierRank(CalculateTier(p))
        if rank < prev {
            t.Fatalf("tier rank decreased at lifetime=%d", p)
        }
        prev = rank
    }
}

func TestNextTier(t *testing.T) {
    next, threshold, ok := NextTier(TierBronze)
    if !ok || next != TierSilver || threshold != 1000 {
        t.Errorf("NextTier(BRONZE) = %s/%d/%v, want SILVER/1000/true", next, threshold, ok)
    }
    next, threshold, ok = NextTier(TierGold)
    if !ok || next != TierPlatinum || threshold != 10000 {
        t.Errorf("NextTier(GOLD) = %s/%d/%v, want PLATINUM/10000/true", next, threshold, ok)
    }
    if _, _, ok := NextTier(TierPlatinum); ok {
        t.Error("PLATINUM must have no next tier")
    }
    // Unknown tiers rank as BRONZE, so they report SILVER as the next step.
    if next, _, ok := NextTier(Tier("MYTHRIL")); !ok || next != TierSilver {
        t.Errorf("NextTier(unknown) = %s/%v, want SILVER/true", next, ok)
    }
}

func TestOrderPoints(t *testing.T) {
    tests := []struct {
        base int64
        tier Tier
        want int64
    }{
        {100, TierBronze, 100},
        {100, TierSilver, 120},
        {100, TierGold, 150},
        {100, TierPlatinum, 200},
        {5, TierSilver, 6},   // 6.0 exactly
        {3, TierSilver, 4},   // 3.6 rounds up
        {1, TierGold, 2},     // 1.5 rounds half-up
        {0, TierPlatinum, 0},
        {100, Tier("MYTHRIL"), 100}, // unknown tier gets BRONZE multiplier
    }
    for _, tc := range tests {
        if got := OrderPoints(tc.base, tc.tier); got != tc.want {
            t.Errorf("OrderPoints(%d, %s) = %d, want %d", tc.base, tc.tier, got, tc.want)
        }
    }
}

func TestOrderPointsMonotonic(t *testing.T) {
    tiers := []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}
    for i := 1; i < len(tiers); i++ {
        lo := OrderPoints(200, tiers[i-1])
        hi := OrderPoints(200, tiers[i])
        if hi < lo {
            t.Errorf("points not monotonic in tier: %s=%d > %s=%d", tiers[i-1], lo, tiers[i], hi)
        }
    }
    for base := int64(0); base < 500; base += 13 {
        if OrderPoints(base, TierGold) > OrderPoints(base+1, TierGold) {
            t.Fatalf("points not monotonic in base at %d", base)
        }
    }
}

func TestTierBenefitsFallback(t *testing.T) {
    got := TierBenefits(Tier("UNKNOWN"))
    want := TierBenefits(TierBronze)
    if got.PointsMultiplier != want.PointsMultiplier {
        t.Errorf("unknown tier multiplier = %v, want bronze %v", got.PointsMultiplier, want.PointsMultiplier)
    }
}

func TestBasePoints(t *testing.T) {
    tests := []struct {
        cents uint32
        per   int
        want  int64
    }{
        {0, 1, 0},
        {99, 1, 0},    // below one currency unit earns nothing
        {100, 1, 1},
        {2599, 1, 25}, // fractions discarded
        {2599, 10, 250},
        {100, 0, 1},   // per-unit below 1 clamps to 1
    }
    for _, tc := range tests {
        if got := BasePoints(tc.cents, tc.per); got != tc.want {
            t.Errorf("BasePoints(%d, %d) = %d, want %d", tc.cents, tc.per, got, tc.want)
        }
    }
}

func TestDeductExpired(t *testing.T) {
    tests := []struct {
        balance, points, want int64
    }{
        {300, 500, 0}, // over-expiry floors at zero
        {500, 300, 200},
        {500, 500, 0},
        {0, 100, 0},
    }
    for _, tc := range tests {
        if got := DeductExpired(tc.balance, tc.points); got != tc.want {
            t.Errorf("DeductExpired(%d, %d) = %d, want %d", tc.balance, tc.points, got, tc.want)
        }
    }
}
