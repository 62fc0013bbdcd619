package turborest

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuditRecord carries the change metadata every stored record must have.
// RowVersion drives optimistic concurrency control: callers send back the
// version they read, the engine computes the next one.
type AuditRecord struct {
	RowVersion int       `bson:"rowVersion" json:"rowVersion"`
	ChangedAt  time.Time `bson:"changedAt" json:"changedAt"`
	ChangedBy  string    `bson:"changedBy" json:"changedBy"`
}

// PayloadRecord is the envelope every business object is persisted as.
// ID and TenantID are assigned by the engine, Deleted marks soft-deleted
// rows, and Data holds the caller-defined payload body.
type PayloadRecord struct {
	ID          string      `bson:"id" json:"id"`
	TenantID    string      `bson:"tenantId" json:"tenantId"`
	Deleted     bool        `bson:"deleted" json:"deleted"`
	AuditRecord AuditRecord `bson:"auditRecord" json:"auditRecord"`
	Data        bson.M      `bson:"data,omitempty" json:"data,omitempty"`
}

// nextAuditRecord advances the audit metadata after a successful mutation.
// RowVersion increases by exactly 1; an insert passes oldVersion 0.
func nextAuditRecord(oldVersion int, changedBy string) AuditRecord {
	if changedBy == "" {
		changedBy = "Anonymous"
	}
	return AuditRecord{
		RowVersion: oldVersion + 1,
		ChangedAt:  time.Now().UTC(),
		ChangedBy:  changedBy,
	}
}

// rowVersionNumber extracts the caller-supplied row version. It fails with
// MissingAuditData before any I/O when the audit record was never populated.
func rowVersionNumber(rec *PayloadRecord) (int, error) {
	if rec == nil || rec.AuditRecord.RowVersion == 0 {
		return 0, NewMissingAuditData()
	}
	return rec.AuditRecord.RowVersion, nil
}
