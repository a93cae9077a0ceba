package model

import "time"

// AuditLogEntry is an append-only record of a successful admin action.
// Details holds a JSON-encoded payload on the write path; historical rows
// may instead carry free text, which the audit package normalizes on read.
//
// Fields:
//
//	ID           – primary key identifier.
//	AdminID      – actor who performed the action.
//	Action       – machine-readable action name (e.g. "ban_user").
//	TargetUserID – affected account, when the action targets one.
//	Details      – JSON payload or legacy free text.
//	IPAddress    – actor's remote address.
//	Timestamp    – when the action happened.
type AuditLogEntry struct {
	ID           int64     // audit_logs.id
	AdminID      int64     // audit_logs.admin_id
	Action       string    // audit_logs.action
	TargetUserID *int64    // audit_logs.target_user_id (nullable)
	Details      string    // audit_logs.details
	IPAddress    string    // audit_logs.ip_address
	Timestamp    time.Time // audit_logs.timestamp
}
