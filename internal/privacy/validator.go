package privacy

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"shielded-notes-go/internal/models"
)

// ValidationResult is the structured outcome of a validation check. Expected
// business-rule violations never surface as errors; they set Valid to false.
type ValidationResult struct {
	Valid            bool                 `json:"valid"`
	Warnings         []string             `json:"warnings"`
	Suggestions      []string             `json:"suggestions"`
	RecommendedLevel *models.PrivacyLevel `json:"recommended_level,omitempty"`
}

// Requirements constrain which privacy levels a transaction may use.
type Requirements struct {
	MinPrivacyLevel      *models.PrivacyLevel
	MaxGasPremiumPercent *int
	RequireFullPrivacy   bool
	CompatibleLevels     []models.PrivacyLevel
}

// TransactionInfo carries the transaction shape under validation.
type TransactionInfo struct {
	TxHash        string
	TxType        models.TxType
	SelectedLevel models.PrivacyLevel
	From          string
	To            string
	Amount        string
	GasCostPublic string
	GasCostFull   string
}

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Validator checks privacy levels and transactions against the configured
// policy. It is a pure function layer over a Manager.
type Validator struct {
	manager *Manager
}

// NewValidator builds a Validator over the given Manager.
func NewValidator(manager *Manager) *Validator {
	return &Validator{manager: manager}
}

func invalid(warning, suggestion string) ValidationResult {
	return ValidationResult{
		Valid:       false,
		Warnings:    []string{warning},
		Suggestions: []string{suggestion},
	}
}

// ValidatePrivacyLevel checks a candidate level against preferences and the
// optional requirements. It fails closed.
func (v *Validator) ValidatePrivacyLevel(level models.PrivacyLevel, requirements *Requirements) ValidationResult {
	if !v.manager.IsLevelAllowed(level) {
		return invalid(
			fmt.Sprintf("Privacy level %s is not allowed by current settings", level),
			fmt.Sprintf("Enable %s in privacy settings or choose a different level", level),
		)
	}

	if requirements != nil {
		if requirements.MinPrivacyLevel != nil && level.Score() < requirements.MinPrivacyLevel.Score() {
			return invalid(
				fmt.Sprintf("Selected privacy level is below minimum requirement (%s)", *requirements.MinPrivacyLevel),
				fmt.Sprintf("Select at least %s privacy level", *requirements.MinPrivacyLevel),
			)
		}

		if requirements.RequireFullPrivacy && level != models.PrivacyFullPrivate {
			return invalid(
				"This transaction requires full privacy",
				"Select Full Private privacy level",
			)
		}

		if len(requirements.CompatibleLevels) > 0 && !containsLevel(requirements.CompatibleLevels, level) {
			return invalid(
				fmt.Sprintf("Privacy level %s is not compatible with this transaction type", level),
				fmt.Sprintf("Use one of these levels: %s", joinLevels(requirements.CompatibleLevels)),
			)
		}
	}

	return ValidationResult{Valid: true, Warnings: []string{}, Suggestions: []string{}}
}

// ValidateTransaction composes level validation, gas-premium and
// self-transfer warnings, and address/amount syntax checks.
func (v *Validator) ValidateTransaction(info TransactionInfo, requirements *Requirements) ValidationResult {
	levelResult := v.ValidatePrivacyLevel(info.SelectedLevel, requirements)
	if !levelResult.Valid {
		return levelResult
	}

	warnings := []string{}
	suggestions := []string{}
	var recommended *models.PrivacyLevel

	public, perr := parseNonNegative(info.GasCostPublic)
	full, ferr := parseNonNegative(info.GasCostFull)
	if perr != nil || ferr != nil || public.Sign() == 0 {
		warnings = append(warnings, "Could not calculate gas cost ratio")
	} else {
		var gapRatio int64
		if full.Sign() > 0 {
			ratio := new(big.Int).Mul(full, big.NewInt(100))
			ratio.Quo(ratio, public)
			gapRatio = ratio.Int64()
		}

		maxPremium := v.manager.Preferences().MaxGasPremiumPercent
		if info.SelectedLevel == models.PrivacyFullPrivate && gapRatio > int64(maxPremium) {
			warnings = append(warnings,
				fmt.Sprintf("Gas cost for full privacy is %d%% higher than public transaction", gapRatio))
			suggestions = append(suggestions,
				fmt.Sprintf("Consider using %s to reduce costs", models.PrivacySemiPrivate))
		}

		rec := v.manager.GetRecommendation(info.Amount, info.GasCostPublic, info.GasCostFull)
		if rec != info.SelectedLevel && v.manager.IsLevelAllowed(rec) {
			recommended = &rec
			suggestions = append(suggestions,
				fmt.Sprintf("Recommended privacy level: %s (better cost/privacy ratio)", rec))
		}
	}

	if !isValidAddress(info.From) {
		return invalid("Invalid sender address", "Use a valid Ethereum address")
	}
	if !isValidAddress(info.To) {
		return invalid("Invalid recipient address", "Use a valid Ethereum address")
	}

	if strings.EqualFold(info.From, info.To) && info.SelectedLevel != models.PrivacyFullPrivate {
		warnings = append(warnings, "Sending to yourself - privacy will not hide the self-transfer")
	}

	if !isValidAmount(info.Amount) {
		return invalid("Invalid amount", "Use a valid amount")
	}

	return ValidationResult{
		Valid:            true,
		Warnings:         warnings,
		Suggestions:      suggestions,
		RecommendedLevel: recommended,
	}
}

// ValidateAddressCompatibility checks a sender/recipient pair against a level.
func (v *Validator) ValidateAddressCompatibility(from, to string, level models.PrivacyLevel) (bool, string) {
	if strings.EqualFold(from, to) && level == models.PrivacyPublic {
		return false, "Cannot send to yourself without privacy"
	}
	return true, ""
}

// ValidateLevelForTxType checks whether a level is usable for a tx type.
// Shield and unshield move value across the privacy boundary and therefore
// need at least semi-private treatment.
func (v *Validator) ValidateLevelForTxType(txType models.TxType, level models.PrivacyLevel) (bool, string) {
	switch txType {
	case models.TxShield:
		if level == models.PrivacyPublic {
			return false, "Shield operations require at least Semi-Private"
		}
	case models.TxUnshield:
		if level == models.PrivacyPublic {
			return false, "Unshield operations require at least Semi-Private"
		}
	}
	return true, ""
}

// CompatibleLevels returns the levels usable for a tx type.
func (v *Validator) CompatibleLevels(txType models.TxType) []models.PrivacyLevel {
	switch txType {
	case models.TxShield, models.TxUnshield:
		return []models.PrivacyLevel{models.PrivacySemiPrivate, models.PrivacyFullPrivate}
	default:
		return v.manager.AvailableLevels()
	}
}

// RecommendLevel recommends a level constrained to the tx type's
// compatible set.
func (v *Validator) RecommendLevel(txType models.TxType, amount, gasCostPublic, gasCostFull string) models.PrivacyLevel {
	recommended := v.manager.GetRecommendation(amount, gasCostPublic, gasCostFull)

	compatible := v.CompatibleLevels(txType)
	if !containsLevel(compatible, recommended) {
		if len(compatible) > 0 {
			return compatible[0]
		}
		return v.manager.Preferences().DefaultLevel
	}
	return recommended
}

// CalculateAggregatePrivacy returns the mean privacy score across
// transactions, rounded to nearest. Empty input yields 0.
func (v *Validator) CalculateAggregatePrivacy(levels []models.PrivacyLevel) int {
	if len(levels) == 0 {
		return 0
	}
	total := 0
	for _, level := range levels {
		total += level.Score()
	}
	return (total + len(levels)/2) / len(levels)
}

// PrivacyImpact returns the observability profile for a level.
func (v *Validator) PrivacyImpact(level models.PrivacyLevel) models.PrivacyImpact {
	return Impact(level)
}

// IsOptimalConfiguration lints a preference set for common misconfigurations.
func (v *Validator) IsOptimalConfiguration(prefs models.PrivacyPreferences) (bool, []string, []string) {
	issues := []string{}
	suggestions := []string{}

	if !prefs.AllowSemiPrivate && !prefs.AllowPublic && prefs.DefaultLevel != models.PrivacyFullPrivate {
		issues = append(issues, "No privacy levels enabled")
		suggestions = append(suggestions, "Enable at least one privacy level")
	}
	if prefs.MaxGasPremiumPercent > 100 {
		issues = append(issues, "Max gas premium percentage is unrealistic (>100%)")
		suggestions = append(suggestions, "Set max gas premium to 100% or lower")
	}
	if prefs.MaxGasPremiumPercent < 20 {
		suggestions = append(suggestions, "Max gas premium is very low - full privacy may be unavailable")
	}

	return len(issues) == 0, issues, suggestions
}

func isValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

func isValidAmount(amount string) bool {
	_, err := parseNonNegative(amount)
	return err == nil
}

func containsLevel(levels []models.PrivacyLevel, level models.PrivacyLevel) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func joinLevels(levels []models.PrivacyLevel) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
