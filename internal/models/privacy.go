package models

import "time"

// PrivacyLevel identifies the privacy treatment applied to a transaction or note.
type PrivacyLevel string

const (
	PrivacyPublic      PrivacyLevel = "public"       // standard blockchain, no privacy
	PrivacySemiPrivate PrivacyLevel = "semi-private" // partial obfuscation
	PrivacyFullPrivate PrivacyLevel = "full-private" // fully shielded
)

// AllPrivacyLevels lists every level in ascending privacy order. The order is
// load-bearing: sync passes iterate it deterministically.
var AllPrivacyLevels = []PrivacyLevel{PrivacyPublic, PrivacySemiPrivate, PrivacyFullPrivate}

// Score returns the privacy score (0, 50 or 100) for the level.
func (l PrivacyLevel) Score() int {
	switch l {
	case PrivacySemiPrivate:
		return 50
	case PrivacyFullPrivate:
		return 100
	default:
		return 0
	}
}

// DisplayName returns the human-readable name of the level.
func (l PrivacyLevel) DisplayName() string {
	switch l {
	case PrivacyPublic:
		return "Public"
	case PrivacySemiPrivate:
		return "Semi-Private"
	case PrivacyFullPrivate:
		return "Full Private"
	default:
		return string(l)
	}
}

// Valid reports whether l is one of the three known levels.
func (l PrivacyLevel) Valid() bool {
	switch l {
	case PrivacyPublic, PrivacySemiPrivate, PrivacyFullPrivate:
		return true
	}
	return false
}

// TxType classifies how a transaction moves value between public and
// shielded representations.
type TxType string

const (
	TxShield   TxType = "shield"
	TxTransfer TxType = "transfer"
	TxUnshield TxType = "unshield"
	TxUnknown  TxType = "unknown"
)

// PrivacyPreferences holds the user-configurable privacy policy.
type PrivacyPreferences struct {
	DefaultLevel        PrivacyLevel `json:"default_level"`
	AutoSelectLevel     bool         `json:"auto_select_level"`
	AllowSemiPrivate    bool         `json:"allow_semi_private"`
	AllowPublic         bool         `json:"allow_public"`
	TrackPrivacyHistory bool         `json:"track_privacy_history"`
	// MaxGasPremiumPercent is the largest acceptable gas premium for privacy.
	MaxGasPremiumPercent int `json:"max_gas_premium_percent"`
}

// DefaultPrivacyPreferences returns the out-of-the-box privacy policy.
func DefaultPrivacyPreferences() PrivacyPreferences {
	return PrivacyPreferences{
		DefaultLevel:         PrivacyFullPrivate,
		AutoSelectLevel:      false,
		AllowSemiPrivate:     true,
		AllowPublic:          true,
		TrackPrivacyHistory:  true,
		MaxGasPremiumPercent: 50,
	}
}

// PrivacyHistoryEntry records one user-facing privacy decision.
type PrivacyHistoryEntry struct {
	Id                 string       `json:"id"`
	Timestamp          time.Time    `json:"timestamp"`
	Level              PrivacyLevel `json:"level"`
	TxHash             string       `json:"tx_hash,omitempty"`
	TxType             TxType       `json:"tx_type"`
	GasCost            string       `json:"gas_cost"`
	PrivacyGainPercent int          `json:"privacy_gain_percent"`
	Notes              string       `json:"notes,omitempty"`
}

// PrivacyStatistics is derived from the full privacy history.
type PrivacyStatistics struct {
	TotalTransactions      int        `json:"total_transactions"`
	PublicCount            int        `json:"public_count"`
	SemiPrivateCount       int        `json:"semi_private_count"`
	FullPrivateCount       int        `json:"full_private_count"`
	AveragePrivacyScore    int        `json:"average_privacy_score"`
	TotalGasSpentOnPrivacy string     `json:"total_gas_spent_on_privacy"`
	LastPrivateTransaction *time.Time `json:"last_private_transaction,omitempty"`
}

// PrivacyCostInfo describes the gas cost profile of a level for one transaction.
type PrivacyCostInfo struct {
	Level             PrivacyLevel  `json:"level"`
	BaseGasCost       string        `json:"base_gas_cost"`
	PrivacyGasPremium string        `json:"privacy_gas_premium"`
	TotalGasCost      string        `json:"total_gas_cost"`
	GasPremiumPercent int           `json:"gas_premium_percent"`
	EstimatedTime     time.Duration `json:"estimated_time"`
	PrivacyBenefit    string        `json:"privacy_benefit"`
}

// PrivacySettingsSnapshot is the versioned export format for preferences and history.
type PrivacySettingsSnapshot struct {
	Version     string                `json:"version"`
	ExportedAt  time.Time             `json:"exported_at"`
	Preferences PrivacyPreferences    `json:"preferences"`
	History     []PrivacyHistoryEntry `json:"history"`
}

// PrivacyImpact quantifies what an observer can learn at a given level.
// Each field is a 0-100 percentage.
type PrivacyImpact struct {
	OnChainVisibility int `json:"on_chain_visibility"`
	Anonymity         int `json:"anonymity"`
	Traceability      int `json:"traceability"`
}
