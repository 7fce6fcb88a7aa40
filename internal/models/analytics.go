package models

import "time"

// TxStatus is the terminal state of a chain operation as seen by analytics.
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxPending TxStatus = "pending"
	TxFailed  TxStatus = "failed"
)

// TransactionMetric records one completed or attempted chain operation.
// Re-recording the same id overwrites (last write wins).
type TransactionMetric struct {
	Id           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	TxHash       string        `json:"tx_hash"`
	PrivacyLevel PrivacyLevel  `json:"privacy_level"`
	Amount       string        `json:"amount"` // base units, decimal string
	GasUsed      string        `json:"gas_used"`
	Status       TxStatus      `json:"status"`
	Duration     time.Duration `json:"duration"`
	FromAddress  string        `json:"from_address"`
	ToAddress    string        `json:"to_address"`
}

// MetricPoint is one bucket of a time series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int       `json:"value"`
	Label     string    `json:"label"`
}

// AddressMetric aggregates activity for a single address. An address is
// counted once per occurrence field, so a self-transfer counts twice.
type AddressMetric struct {
	Address          string        `json:"address"`
	TransactionCount int           `json:"transaction_count"`
	TotalVolume      string        `json:"total_volume"`
	AvgDuration      time.Duration `json:"avg_duration"`
	SuccessRate      float64       `json:"success_rate"`
	LastActivity     time.Time     `json:"last_activity"`
}

// AnalyticsData aggregates a set of transaction metrics.
type AnalyticsData struct {
	TotalTransactions int                  `json:"total_transactions"`
	SuccessRate       float64              `json:"success_rate"`
	AvgDuration       time.Duration        `json:"avg_duration"`
	TotalVolume       string               `json:"total_volume"`
	ByPrivacyLevel    map[PrivacyLevel]int `json:"by_privacy_level"`
	ByStatus          map[TxStatus]int     `json:"by_status"`
	AverageAmount     string               `json:"average_amount"`
	MedianDuration    float64              `json:"median_duration_ms"` // may be fractional
}

// AnomalyType classifies a detected anomaly.
type AnomalyType string

const (
	AnomalyHighVolume      AnomalyType = "high_volume"
	AnomalySlowTransaction AnomalyType = "slow_transaction"
	AnomalyFailureSpike    AnomalyType = "failure_spike"
	AnomalyUnusualPattern  AnomalyType = "unusual_pattern"
)

// AnomalySeverity grades an anomaly alert.
type AnomalySeverity string

const (
	SeverityLow    AnomalySeverity = "low"
	SeverityMedium AnomalySeverity = "medium"
	SeverityHigh   AnomalySeverity = "high"
)

// AnomalyAlert is a derived signal over a rolling metric window.
type AnomalyAlert struct {
	Id                   string          `json:"id"`
	Type                 AnomalyType     `json:"type"`
	Severity             AnomalySeverity `json:"severity"`
	Message              string          `json:"message"`
	Timestamp            time.Time       `json:"timestamp"`
	AffectedTransactions []string        `json:"affected_transactions"`
}

// MetricsSnapshot is the versioned export format for analytics metrics.
type MetricsSnapshot struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Metrics    []TransactionMetric `json:"metrics"`
}
