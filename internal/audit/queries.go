package audit

const (
	queryInsertEntry = `
		INSERT INTO audit_trail (timestamp, session_id, event, status, retry_count, score, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	querySelectAll = `
		SELECT id, timestamp, session_id, event, status, retry_count, score, detail
		FROM audit_trail
		ORDER BY id DESC`

	querySelectBySession = `
		SELECT id, timestamp, session_id, event, status, retry_count, score, detail
		FROM audit_trail
		WHERE session_id = ?
		ORDER BY id DESC`
)
