package privacy

import "shielded-notes-go/internal/models"

// Descriptions maps each privacy level to its user-facing summary.
var Descriptions = map[models.PrivacyLevel]string{
	models.PrivacyPublic:      "Standard blockchain transaction - no privacy",
	models.PrivacySemiPrivate: "Partial privacy - amount and recipient hidden",
	models.PrivacyFullPrivate: "Full privacy - all details hidden via shielded pool",
}

// Benefits maps each privacy level to its ordered benefit list.
var Benefits = map[models.PrivacyLevel][]string{
	models.PrivacyPublic: {
		"Fastest transactions",
		"No gas premium",
		"Standard confirmations",
	},
	models.PrivacySemiPrivate: {
		"Amount hidden",
		"Recipient private",
		"Moderate gas premium",
	},
	models.PrivacyFullPrivate: {
		"Complete privacy",
		"Sender hidden",
		"Amount hidden",
		"Recipient hidden",
		"No blockchain trace",
	},
}

// Description returns the user-facing summary for a level.
func Description(level models.PrivacyLevel) string {
	return Descriptions[level]
}

// LevelBenefits returns the ordered benefit list for a level.
func LevelBenefits(level models.PrivacyLevel) []string {
	return Benefits[level]
}

// IsLevelAllowed reports whether the preferences permit the level.
// Full privacy is always allowed.
func IsLevelAllowed(level models.PrivacyLevel, prefs models.PrivacyPreferences) bool {
	switch level {
	case models.PrivacyPublic:
		return prefs.AllowPublic
	case models.PrivacySemiPrivate:
		return prefs.AllowSemiPrivate
	case models.PrivacyFullPrivate:
		return true
	default:
		return false
	}
}

// AvailableLevels returns the permitted levels in descending privacy order.
func AvailableLevels(prefs models.PrivacyPreferences) []models.PrivacyLevel {
	levels := []models.PrivacyLevel{models.PrivacyFullPrivate}
	if prefs.AllowSemiPrivate {
		levels = append(levels, models.PrivacySemiPrivate)
	}
	if prefs.AllowPublic {
		levels = append(levels, models.PrivacyPublic)
	}
	return levels
}

// Impact returns the fixed observability profile for a level.
func Impact(level models.PrivacyLevel) models.PrivacyImpact {
	switch level {
	case models.PrivacySemiPrivate:
		return models.PrivacyImpact{OnChainVisibility: 30, Anonymity: 70, Traceability: 20}
	case models.PrivacyFullPrivate:
		return models.PrivacyImpact{OnChainVisibility: 0, Anonymity: 100, Traceability: 0}
	default:
		return models.PrivacyImpact{OnChainVisibility: 100, Anonymity: 0, Traceability: 100}
	}
}
