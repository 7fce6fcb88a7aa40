/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package privacy

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"shielded-notes-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sentinel errors raised by the privacy layer.
var (
	ErrInvalidNumeric  = errors.New("value is not a non-negative integer")
	ErrLevelNotAllowed = errors.New("privacy level not allowed by preferences")
)

const settingsVersion = "1.0"

// Per-level gas premium percentages and confirmation time estimates.
var (
	premiumPercents = map[models.PrivacyLevel]int{
		models.PrivacyPublic:      0,
		models.PrivacySemiPrivate: 15,
		models.PrivacyFullPrivate: 35,
	}
	estimatedTimes = map[models.PrivacyLevel]time.Duration{
		models.PrivacyPublic:      10 * time.Second,
		models.PrivacySemiPrivate: 20 * time.Second,
		models.PrivacyFullPrivate: 45 * time.Second,
	}
)

// Amount thresholds for the recommendation heuristic, in base units
// (1 token = 10^18 base units).
var (
	largeAmountThreshold, _    = new(big.Int).SetString("10000000000000000000", 10)
	moderateAmountThreshold, _ = new(big.Int).SetString("1000000000000000000", 10)
)

// Manager owns the privacy preferences and the decision history ledger.
// All methods are safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	preferences models.PrivacyPreferences
	history     map[string]models.PrivacyHistoryEntry
	stats       models.PrivacyStatistics
}

// NewManager builds a Manager with the given preferences.
func NewManager(prefs models.PrivacyPreferences) *Manager {
	return &Manager{
		preferences: prefs,
		history:     make(map[string]models.PrivacyHistoryEntry),
		stats:       models.PrivacyStatistics{TotalGasSpentOnPrivacy: "0"},
	}
}

// NewDefaultManager builds a Manager with default preferences.
func NewDefaultManager() *Manager {
	return NewManager(models.DefaultPrivacyPreferences())
}

// IsLevelAllowed reports whether the current preferences permit the level.
func (m *Manager) IsLevelAllowed(level models.PrivacyLevel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return IsLevelAllowed(level, m.preferences)
}

// AvailableLevels returns the permitted levels in descending privacy order.
func (m *Manager) AvailableLevels() []models.PrivacyLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return AvailableLevels(m.preferences)
}

// parseNonNegative parses s as a non-negative arbitrary-precision integer.
func parseNonNegative(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumeric, s)
	}
	return v, nil
}

// CalculatePrivacyCost computes the gas cost profile for a level. All
// arithmetic is arbitrary-precision with truncating integer division.
func (m *Manager) CalculatePrivacyCost(baseGasPrice, baseGasAmount string, level models.PrivacyLevel) (models.PrivacyCostInfo, error) {
	price, err := parseNonNegative(baseGasPrice)
	if err != nil {
		return models.PrivacyCostInfo{}, fmt.Errorf("invalid gas price: %w", err)
	}
	amount, err := parseNonNegative(baseGasAmount)
	if err != nil {
		return models.PrivacyCostInfo{}, fmt.Errorf("invalid gas amount: %w", err)
	}

	base := new(big.Int).Mul(price, amount)
	premiumPercent := premiumPercents[level]

	premium := new(big.Int).Mul(base, big.NewInt(int64(premiumPercent)))
	premium.Quo(premium, big.NewInt(100))
	total := new(big.Int).Add(base, premium)

	return models.PrivacyCostInfo{
		Level:             level,
		BaseGasCost:       base.String(),
		PrivacyGasPremium: premium.String(),
		TotalGasCost:      total.String(),
		GasPremiumPercent: premiumPercent,
		EstimatedTime:     estimatedTimes[level],
		PrivacyBenefit:    Description(level),
	}, nil
}

// GetRecommendation suggests a level from the transaction shape. This is a
// heuristic: any parse failure degrades to the configured default level
// instead of returning an error.
func (m *Manager) GetRecommendation(txAmount, gasCostPublic, gasCostFull string) models.PrivacyLevel {
	m.mu.Lock()
	prefs := m.preferences
	m.mu.Unlock()

	amount, err := parseNonNegative(txAmount)
	if err != nil {
		return prefs.DefaultLevel
	}
	public, err := parseNonNegative(gasCostPublic)
	if err != nil || public.Sign() == 0 {
		return prefs.DefaultLevel
	}
	full, err := parseNonNegative(gasCostFull)
	if err != nil {
		return prefs.DefaultLevel
	}

	gasDiff := new(big.Int).Sub(full, public)
	gasDiffPercent := new(big.Int).Mul(gasDiff, big.NewInt(100))
	gasDiffPercent.Quo(gasDiffPercent, public)

	if amount.Cmp(largeAmountThreshold) > 0 {
		if gasDiffPercent.Cmp(big.NewInt(int64(prefs.MaxGasPremiumPercent))) <= 0 && prefs.AllowPublic {
			return models.PrivacyFullPrivate
		}
	}
	if amount.Cmp(moderateAmountThreshold) > 0 && prefs.AllowSemiPrivate {
		return models.PrivacySemiPrivate
	}
	if prefs.AllowPublic {
		return models.PrivacyPublic
	}
	return prefs.DefaultLevel
}

// AddHistoryEntry appends a privacy decision to the ledger and returns its id.
// Entries are only retained when history tracking is enabled.
func (m *Manager) AddHistoryEntry(entry models.PrivacyHistoryEntry) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.Id = uuid.New().String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if m.preferences.TrackPrivacyHistory {
		m.history[entry.Id] = entry
		m.recomputeStatisticsLocked()
	}
	return entry.Id
}

// HistoryEntry returns one entry by id.
func (m *Manager) HistoryEntry(id string) (models.PrivacyHistoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.history[id]
	return entry, ok
}

// History returns entries sorted descending by timestamp. A positive limit
// truncates the result.
func (m *Manager) History(limit int) []models.PrivacyHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyLocked(limit)
}

func (m *Manager) historyLocked(limit int) []models.PrivacyHistoryEntry {
	entries := make([]models.PrivacyHistoryEntry, 0, len(m.history))
	for _, e := range m.history {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// HistoryByLevel returns entries for one level, newest first.
func (m *Manager) HistoryByLevel(level models.PrivacyLevel) []models.PrivacyHistoryEntry {
	all := m.History(0)
	filtered := make([]models.PrivacyHistoryEntry, 0, len(all))
	for _, e := range all {
		if e.Level == level {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// ClearHistory removes all history entries.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = make(map[string]models.PrivacyHistoryEntry)
	m.recomputeStatisticsLocked()
}

// recomputeStatisticsLocked rebuilds derived statistics from the full
// history. The ledger is bounded by user activity, so a full pass is fine.
func (m *Manager) recomputeStatisticsLocked() {
	stats := models.PrivacyStatistics{TotalGasSpentOnPrivacy: "0"}
	totalScore := 0
	totalGas := new(big.Int)
	var lastPrivate *time.Time

	for _, e := range m.history {
		stats.TotalTransactions++
		switch e.Level {
		case models.PrivacyPublic:
			stats.PublicCount++
		case models.PrivacySemiPrivate:
			stats.SemiPrivateCount++
		case models.PrivacyFullPrivate:
			stats.FullPrivateCount++
			if lastPrivate == nil || e.Timestamp.After(*lastPrivate) {
				ts := e.Timestamp
				lastPrivate = &ts
			}
		}
		totalScore += e.Level.Score()
		if gas, ok := new(big.Int).SetString(e.GasCost, 10); ok {
			totalGas.Add(totalGas, gas)
		}
	}

	if stats.TotalTransactions > 0 {
		stats.AveragePrivacyScore = totalScore / stats.TotalTransactions
	}
	stats.TotalGasSpentOnPrivacy = totalGas.String()
	stats.LastPrivateTransaction = lastPrivate
	m.stats = stats
}

// Statistics returns a copy of the derived privacy statistics.
func (m *Manager) Statistics() models.PrivacyStatistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Preferences returns a copy of the current preferences.
func (m *Manager) Preferences() models.PrivacyPreferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preferences
}

// UpdatePreferences replaces the preferences and returns the new value.
func (m *Manager) UpdatePreferences(prefs models.PrivacyPreferences) models.PrivacyPreferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences = prefs
	zap.L().Info("Privacy preferences updated",
		zap.String("default_level", string(prefs.DefaultLevel)),
		zap.Bool("allow_public", prefs.AllowPublic),
		zap.Bool("allow_semi_private", prefs.AllowSemiPrivate),
		zap.Int("max_gas_premium_percent", prefs.MaxGasPremiumPercent))
	return m.preferences
}

// SetDefaultLevel changes the default privacy level. The new default must be
// permitted by the current allow flags.
func (m *Manager) SetDefaultLevel(level models.PrivacyLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !IsLevelAllowed(level, m.preferences) {
		return fmt.Errorf("%w: %s", ErrLevelNotAllowed, level)
	}
	m.preferences.DefaultLevel = level
	return nil
}

// ResetToDefaults restores the default preferences.
func (m *Manager) ResetToDefaults() models.PrivacyPreferences {
	return m.UpdatePreferences(models.DefaultPrivacyPreferences())
}

// ExportSettings snapshots the preferences and the full history.
func (m *Manager) ExportSettings() models.PrivacySettingsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.PrivacySettingsSnapshot{
		Version:     settingsVersion,
		ExportedAt:  time.Now(),
		Preferences: m.preferences,
		History:     m.historyLocked(0),
	}
}

// ImportSettings restores preferences and history from a snapshot.
func (m *Manager) ImportSettings(snapshot models.PrivacySettingsSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences = snapshot.Preferences
	for _, entry := range snapshot.History {
		m.history[entry.Id] = entry
	}
	m.recomputeStatisticsLocked()
	zap.L().Info("Privacy settings imported", zap.Int("history_entries", len(snapshot.History)))
}

// LevelFromTxType maps a transaction type onto its natural privacy level.
func (m *Manager) LevelFromTxType(txType models.TxType) models.PrivacyLevel {
	switch txType {
	case models.TxShield, models.TxUnshield:
		return models.PrivacySemiPrivate
	case models.TxTransfer:
		return models.PrivacyFullPrivate
	default:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.preferences.DefaultLevel
	}
}
