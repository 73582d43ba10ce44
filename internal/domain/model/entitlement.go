package model

// Tier is the effective content-access level derived from a user's records.
type Tier string

const (
	TierNone    Tier = "NONE"
	TierSignals Tier = "SIGNALS"
	TierPremium Tier = "PREMIUM"
)

// Entitlement is computed on read; it is never stored.
type Entitlement struct {
	UserID       string        `json:"user_id"`
	Tier         Tier          `json:"tier"`
	SignalsValid bool          `json:"signals_valid"`
	PremiumValid bool          `json:"premium_valid"`
	Mentorship   bool          `json:"mentorship"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Allows reports whether the entitlement covers content gated at tier t.
func (e Entitlement) Allows(t Tier) bool {
	switch t {
	case TierNone:
		return true
	case TierSignals:
		return e.Tier == TierSignals || e.Tier == TierPremium
	case TierPremium:
		return e.Tier == TierPremium
	}
	return false
}

// PremiumSignals gates the premium signal feed.
func (e Entitlement) PremiumSignals() bool { return e.Allows(TierSignals) }

// PremiumResources gates the premium resource library. A signals
// subscription alone does not unlock it.
func (e Entitlement) PremiumResources() bool { return e.Allows(TierPremium) }
