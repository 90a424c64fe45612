package config

import "time"

// LoyaltyConfig groups the tunable knobs of the loyalty program.  Tier
// thresholds and multipliers are fixed in the loyalty package; only the
// currency conversion and the expiry horizon vary per deployment.
// PointsPerUnit is the number of points earned per full currency unit
// (100 cents) of an order's grand total.  ExpiryMonths controls how long
// earned points remain spendable before the expiry batch reclaims them.
type LoyaltyConfig struct {
    PointsPerUnit int // points granted per 100 cents of order total
    ExpiryMonths  int // months before an EARN transaction expires
}

// LoadLoyaltyConfig reads loyalty program settings from the environment.
// Defaults match the production program: 1 point per currency unit and a
// 12 month expiry window.
func LoadLoyaltyConfig() LoyaltyConfig {
    cfg := LoyaltyConfig{
        PointsPerUnit: atoi(getenv("LOYALTY_POINTS_PER_UNIT", "1")),
        ExpiryMonths:  atoi(getenv("LOYALTY_EXPIRY_MONTHS", "12")),
    }
    if cfg.PointsPerUnit < 1 {
        cfg.PointsPerUnit = 1
    }
    if cfg.ExpiryMonths < 1 {
        cfg.ExpiryMonths = 12
    }
    return cfg
}

// ExpiryDuration converts the configured expiry horizon into a duration.
// Months are approximated as 30 days only for logging; the actual expiry
// date is computed with time.AddDate to stay calendar-accurate.
func (c LoyaltyConfig) ExpiryDuration() time.Duration {
    return time.Duration(c.ExpiryMonths) * 30 * 24 * time.Hour
}
