package database

const (
	queryInsertNote = `
	INSERT INTO notes (
		id, commitment_hash, encrypted_data, privacy_level, payload_timestamp,
		salt, iv, tx_hash, from_address, to_address, amount,
		encrypted_flag, sync_status, created_at, synced_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectNotes = `
	SELECT id, commitment_hash, encrypted_data, privacy_level, payload_timestamp,
		salt, iv, tx_hash, from_address, to_address, amount,
		encrypted_flag, sync_status, created_at, synced_at, error
	FROM notes
	ORDER BY created_at`

	queryInsertMetric = `
	INSERT INTO metrics (
		id, timestamp, tx_hash, privacy_level, amount, gas_used,
		status, duration_ms, from_address, to_address
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectMetrics = `
	SELECT id, timestamp, tx_hash, privacy_level, amount, gas_used,
		status, duration_ms, from_address, to_address
	FROM metrics
	ORDER BY timestamp`

	queryInsertHistoryEntry = `
	INSERT INTO privacy_history (
		id, timestamp, level, tx_hash, tx_type, gas_cost, privacy_gain_percent, notes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectHistory = `
	SELECT id, timestamp, level, tx_hash, tx_type, gas_cost, privacy_gain_percent, notes
	FROM privacy_history
	ORDER BY timestamp`
)
