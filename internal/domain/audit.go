package domain

// AuditRecord is one question/answer exchange appended to the audit
// spreadsheet. Timestamp is filled in by the audit logger in UTC+9 as
// "YYYY-MM-DD HH:MM:SS" with no zone suffix. Records are append-only with no
// uniqueness constraint; duplicates on platform retry are acceptable.
type AuditRecord struct {
	UserName  string
	UserID    string
	Question  string
	Timestamp string
	Answer    string
}
