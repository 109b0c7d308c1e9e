package database

import (
	"database/sql"

	"cfadmin/internal/model"
)

func (db *DB) LogAudit(entry model.AuditEntry) error {
	_, err := db.conn.Exec(
		`INSERT INTO audit_log (subject, action, zone_id, record_name, record_type, detail, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Subject, entry.Action, entry.ZoneID, entry.RecordName,
		entry.RecordType, entry.Detail, entry.IPAddress,
	)
	return err
}

func (db *DB) ListAuditLog(limit, offset int) ([]model.AuditEntry, int, error) {
	var total int
	_ = db.conn.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&total)

	rows, err := db.conn.Query(
		`SELECT id, subject, action, zone_id, record_name, record_type, detail, ip_address, created_at
		 FROM audit_log
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var zoneID, recordName, recordType, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Subject, &e.Action, &zoneID, &recordName,
			&recordType, &detail, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.ZoneID = zoneID.String
		e.RecordName = recordName.String
		e.RecordType = recordType.String
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
