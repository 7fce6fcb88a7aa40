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

package analytics

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"shielded-notes-go/internal/models"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

const metricsVersion = "1.0"

// Default tuning for anomaly detection.
const (
	DefaultAnomalyCacheTimeout = time.Minute
	DefaultAnomalyWindow       = time.Hour

	slowTransactionFactor = 3    // slow = duration > 3x window mean
	slowTransactionShare  = 0.2  // alert when >20% of the window is slow
	failureRateThreshold  = 10.0 // percent
	highVolumeThreshold   = 1000 // transactions per window
)

// StatsFilter restricts which metrics an aggregation considers. Nil fields
// mean "no constraint".
type StatsFilter struct {
	Level *models.PrivacyLevel
	Start *time.Time
	End   *time.Time
}

// Manager owns the transaction metric time series and the cached anomaly
// alerts derived from it. Safe for concurrent use.
type Manager struct {
	mu               sync.Mutex
	metrics          map[string]models.TransactionMetric
	anomalies        map[string]models.AnomalyAlert
	lastAnalysisTime time.Time
	cacheTimeout     time.Duration
	window           time.Duration
	now              func() time.Time
}

// NewManager builds a Manager with the given tuning. Non-positive values fall
// back to the defaults.
func NewManager(cfg models.AnalyticsConfig) *Manager {
	cacheTimeout := cfg.AnomalyCacheTimeout
	if cacheTimeout <= 0 {
		cacheTimeout = DefaultAnomalyCacheTimeout
	}
	window := cfg.AnomalyWindow
	if window <= 0 {
		window = DefaultAnomalyWindow
	}
	return &Manager{
		metrics:      make(map[string]models.TransactionMetric),
		anomalies:    make(map[string]models.AnomalyAlert),
		cacheTimeout: cacheTimeout,
		window:       window,
		now:          time.Now,
	}
}

// Record upserts a metric by id. Re-recording an id overwrites the previous
// value.
func (m *Manager) Record(metric models.TransactionMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.Id] = metric
}

// Metric returns one metric by id.
func (m *Manager) Metric(id string) (models.TransactionMetric, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, ok := m.metrics[id]
	return metric, ok
}

// Range returns metrics with timestamps in [start, end], inclusive.
func (m *Manager) Range(start, end time.Time) []models.TransactionMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeLocked(start, end)
}

func (m *Manager) rangeLocked(start, end time.Time) []models.TransactionMetric {
	out := []models.TransactionMetric{}
	for _, metric := range m.metrics {
		if !metric.Timestamp.Before(start) && !metric.Timestamp.After(end) {
			out = append(out, metric)
		}
	}
	return out
}

// Count returns the number of recorded metrics.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.metrics)
}

// All returns every recorded metric.
func (m *Manager) All() []models.TransactionMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TransactionMetric, 0, len(m.metrics))
	for _, metric := range m.metrics {
		out = append(out, metric)
	}
	return out
}

// Stats aggregates the metrics selected by the filter.
func (m *Manager) Stats(filter StatsFilter) models.AnalyticsData {
	m.mu.Lock()
	defer m.mu.Unlock()

	selected := []models.TransactionMetric{}
	for _, metric := range m.metrics {
		if filter.Level != nil && metric.PrivacyLevel != *filter.Level {
			continue
		}
		if filter.Start != nil && metric.Timestamp.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && metric.Timestamp.After(*filter.End) {
			continue
		}
		selected = append(selected, metric)
	}
	return calculateStats(selected)
}

// LevelStats aggregates all metrics at one privacy level.
func (m *Manager) LevelStats(level models.PrivacyLevel) models.AnalyticsData {
	return m.Stats(StatsFilter{Level: &level})
}

// calculateStats aggregates a metric set. Volume arithmetic is
// arbitrary-precision; the average amount uses truncating integer division.
func calculateStats(metrics []models.TransactionMetric) models.AnalyticsData {
	if len(metrics) == 0 {
		return models.AnalyticsData{
			TotalVolume:    "0",
			AverageAmount:  "0",
			ByPrivacyLevel: map[models.PrivacyLevel]int{},
			ByStatus:       map[models.TxStatus]int{},
		}
	}

	byLevel := map[models.PrivacyLevel]int{}
	byStatus := map[models.TxStatus]int{}
	totalVolume := new(big.Int)
	var totalDuration time.Duration
	durations := make([]float64, 0, len(metrics))

	for _, metric := range metrics {
		byLevel[metric.PrivacyLevel]++
		byStatus[metric.Status]++
		if amount, ok := new(big.Int).SetString(metric.Amount, 10); ok {
			totalVolume.Add(totalVolume, amount)
		}
		totalDuration += metric.Duration
		durations = append(durations, float64(metric.Duration.Milliseconds()))
	}

	successRate := float64(byStatus[models.TxSuccess]) / float64(len(metrics)) * 100
	averageAmount := new(big.Int).Quo(totalVolume, big.NewInt(int64(len(metrics))))
	median, err := stats.Median(durations)
	if err != nil {
		median = 0
	}

	return models.AnalyticsData{
		TotalTransactions: len(metrics),
		SuccessRate:       successRate,
		AvgDuration:       totalDuration / time.Duration(len(metrics)),
		TotalVolume:       totalVolume.String(),
		ByPrivacyLevel:    byLevel,
		ByStatus:          byStatus,
		AverageAmount:     averageAmount.String(),
		MedianDuration:    median,
	}
}

// AddressMetrics aggregates every metric that references the address as
// sender or receiver. A metric where the address fills both roles counts
// twice, matching TopAddresses. Returns false when nothing references it.
func (m *Manager) AddressMetrics(address string) (models.AddressMetric, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rollup := m.rollupByAddressLocked()
	metrics, ok := rollup[address]
	if !ok {
		return models.AddressMetric{}, false
	}
	return aggregateAddress(address, metrics), true
}

// TopAddresses returns per-address rollups sorted descending by transaction
// count, truncated to limit.
func (m *Manager) TopAddresses(limit int) []models.AddressMetric {
	m.mu.Lock()
	defer m.mu.Unlock()

	rollup := m.rollupByAddressLocked()
	out := make([]models.AddressMetric, 0, len(rollup))
	for address, metrics := range rollup {
		out = append(out, aggregateAddress(address, metrics))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionCount != out[j].TransactionCount {
			return out[i].TransactionCount > out[j].TransactionCount
		}
		return out[i].Address < out[j].Address
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// rollupByAddressLocked groups metrics by address, once per occurrence field.
func (m *Manager) rollupByAddressLocked() map[string][]models.TransactionMetric {
	rollup := map[string][]models.TransactionMetric{}
	for _, metric := range m.metrics {
		rollup[metric.FromAddress] = append(rollup[metric.FromAddress], metric)
		rollup[metric.ToAddress] = append(rollup[metric.ToAddress], metric)
	}
	return rollup
}

func aggregateAddress(address string, metrics []models.TransactionMetric) models.AddressMetric {
	totalVolume := new(big.Int)
	var totalDuration time.Duration
	successCount := 0
	var lastActivity time.Time

	for _, metric := range metrics {
		if amount, ok := new(big.Int).SetString(metric.Amount, 10); ok {
			totalVolume.Add(totalVolume, amount)
		}
		totalDuration += metric.Duration
		if metric.Status == models.TxSuccess {
			successCount++
		}
		if metric.Timestamp.After(lastActivity) {
			lastActivity = metric.Timestamp
		}
	}

	return models.AddressMetric{
		Address:          address,
		TransactionCount: len(metrics),
		TotalVolume:      totalVolume.String(),
		AvgDuration:      totalDuration / time.Duration(len(metrics)),
		SuccessRate:      float64(successCount) / float64(len(metrics)) * 100,
		LastActivity:     lastActivity,
	}
}

// TimeSeries buckets metric counts into fixed-width right-open intervals
// [t, t+interval) starting at start. Empty buckets are included.
func (m *Manager) TimeSeries(start, end time.Time, interval time.Duration) []models.MetricPoint {
	if interval <= 0 || !end.After(start) {
		return []models.MetricPoint{}
	}

	metrics := m.Range(start, end)
	span := end.Sub(start)
	buckets := int(span / interval)
	if span%interval != 0 {
		buckets++
	}

	points := make([]models.MetricPoint, 0, buckets)
	for i := 0; i < buckets; i++ {
		bucketStart := start.Add(time.Duration(i) * interval)
		bucketEnd := bucketStart.Add(interval)
		count := 0
		for _, metric := range metrics {
			if !metric.Timestamp.Before(bucketStart) && metric.Timestamp.Before(bucketEnd) {
				count++
			}
		}
		points = append(points, models.MetricPoint{
			Timestamp: bucketStart,
			Value:     count,
			Label:     bucketStart.UTC().Format(time.RFC3339),
		})
	}
	return points
}

// CalculateAnomalies recomputes the anomaly alerts over the trailing window,
// unless the cached result is still fresh. Empty windows produce no alerts.
func (m *Manager) CalculateAnomalies() []models.AnomalyAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastAnalysisTime) < m.cacheTimeout {
		return m.anomaliesLocked()
	}

	m.anomalies = make(map[string]models.AnomalyAlert)
	m.lastAnalysisTime = now

	recent := m.rangeLocked(now.Add(-m.window), now)
	if len(recent) == 0 {
		return []models.AnomalyAlert{}
	}

	var totalDuration time.Duration
	for _, metric := range recent {
		totalDuration += metric.Duration
	}
	meanDuration := totalDuration / time.Duration(len(recent))

	slow := []string{}
	for _, metric := range recent {
		if metric.Duration > meanDuration*slowTransactionFactor {
			slow = append(slow, metric.Id)
		}
	}
	if float64(len(slow)) > float64(len(recent))*slowTransactionShare {
		m.addAlertLocked(models.AnomalyAlert{
			Type:                 models.AnomalySlowTransaction,
			Severity:             models.SeverityMedium,
			Message:              fmt.Sprintf("%d slow transactions detected", len(slow)),
			Timestamp:            now,
			AffectedTransactions: slow,
		})
	}

	failedIds := []string{}
	for _, metric := range recent {
		if metric.Status == models.TxFailed {
			failedIds = append(failedIds, metric.Id)
		}
	}
	failureRate := float64(len(failedIds)) / float64(len(recent)) * 100
	if failureRate > failureRateThreshold {
		m.addAlertLocked(models.AnomalyAlert{
			Type:                 models.AnomalyFailureSpike,
			Severity:             models.SeverityHigh,
			Message:              fmt.Sprintf("High failure rate detected: %.2f%%", failureRate),
			Timestamp:            now,
			AffectedTransactions: failedIds,
		})
	}

	if len(recent) > highVolumeThreshold {
		allIds := make([]string, 0, len(recent))
		for _, metric := range recent {
			allIds = append(allIds, metric.Id)
		}
		m.addAlertLocked(models.AnomalyAlert{
			Type:                 models.AnomalyHighVolume,
			Severity:             models.SeverityLow,
			Message:              fmt.Sprintf("High transaction volume: %d transactions", len(recent)),
			Timestamp:            now,
			AffectedTransactions: allIds,
		})
	}

	alerts := m.anomaliesLocked()
	if len(alerts) > 0 {
		zap.L().Warn("Anomalies detected", zap.Int("alerts", len(alerts)), zap.Int("window_metrics", len(recent)))
	}
	return alerts
}

func (m *Manager) addAlertLocked(alert models.AnomalyAlert) {
	alert.Id = uuid.New().String()
	m.anomalies[alert.Id] = alert
}

// Anomalies returns the currently cached alerts without recomputing.
func (m *Manager) Anomalies() []models.AnomalyAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anomaliesLocked()
}

func (m *Manager) anomaliesLocked() []models.AnomalyAlert {
	out := make([]models.AnomalyAlert, 0, len(m.anomalies))
	for _, alert := range m.anomalies {
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// PeakHours returns the hours of day whose transaction count exceeds 1.5x
// the hourly mean within [start, end].
func (m *Manager) PeakHours(start, end time.Time) []int {
	metrics := m.Range(start, end)
	hourCounts := make([]int, 24)
	for _, metric := range metrics {
		hourCounts[metric.Timestamp.Hour()]++
	}

	counts := make([]float64, 24)
	for i, c := range hourCounts {
		counts[i] = float64(c)
	}
	mean, err := stats.Mean(counts)
	if err != nil {
		return []int{}
	}

	peaks := []int{}
	for hour, count := range hourCounts {
		if float64(count) > mean*1.5 {
			peaks = append(peaks, hour)
		}
	}
	return peaks
}

// SuccessRate returns the percent of successful metrics in the window,
// defaulting to the trailing 24 hours. An empty window reads as 100.
func (m *Manager) SuccessRate(start, end *time.Time) float64 {
	s, e := m.defaultWindow(start, end)
	metrics := m.Range(s, e)
	if len(metrics) == 0 {
		return 100
	}
	success := 0
	for _, metric := range metrics {
		if metric.Status == models.TxSuccess {
			success++
		}
	}
	return float64(success) / float64(len(metrics)) * 100
}

// AvgDuration returns the mean duration in the window, defaulting to the
// trailing 24 hours.
func (m *Manager) AvgDuration(start, end *time.Time) time.Duration {
	s, e := m.defaultWindow(start, end)
	metrics := m.Range(s, e)
	if len(metrics) == 0 {
		return 0
	}
	var total time.Duration
	for _, metric := range metrics {
		total += metric.Duration
	}
	return total / time.Duration(len(metrics))
}

func (m *Manager) defaultWindow(start, end *time.Time) (time.Time, time.Time) {
	now := m.now()
	s := now.Add(-24 * time.Hour)
	e := now
	if start != nil {
		s = *start
	}
	if end != nil {
		e = *end
	}
	return s, e
}

// Export snapshots every metric.
func (m *Manager) Export() models.MetricsSnapshot {
	return models.MetricsSnapshot{
		Version:    metricsVersion,
		ExportedAt: m.now(),
		Metrics:    m.All(),
	}
}

// Import upserts every metric from a snapshot.
func (m *Manager) Import(snapshot models.MetricsSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, metric := range snapshot.Metrics {
		m.metrics[metric.Id] = metric
	}
	zap.L().Info("Metrics imported", zap.Int("metrics", len(snapshot.Metrics)))
}

// Reset discards all metrics and cached anomalies.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[string]models.TransactionMetric)
	m.anomalies = make(map[string]models.AnomalyAlert)
	m.lastAnalysisTime = time.Time{}
}

// ClearOlderThan removes metrics older than the given number of days and
// returns how many were removed.
func (m *Manager) ClearOlderThan(days int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)
	removed := 0
	for id, metric := range m.metrics {
		if metric.Timestamp.Before(cutoff) {
			delete(m.metrics, id)
			removed++
		}
	}
	if removed > 0 {
		zap.L().Info("Old metrics cleared", zap.Int("removed", removed), zap.Int("days", days))
	}
	return removed
}
