package models

import "time"

// Audit actions. One event is emitted per mutating operation.
const (
	ActionBookCreated    = "book.create"
	ActionBookUpdated    = "book.update"
	ActionBookDeleted    = "book.delete"
	ActionReaderCreated  = "reader.create"
	ActionReaderUpdated  = "reader.update"
	ActionReaderDeleted  = "reader.delete"
	ActionCategoryCreate = "category.create"
	ActionCategoryUpdate = "category.update"
	ActionCategoryDelete = "category.delete"
	ActionBorrowCreated  = "borrow.create"
	ActionBookReturned   = "borrow.return"
	ActionBorrowRenewed  = "borrow.renew"
	ActionBorrowStatus   = "borrow.status"
	ActionFineApplied    = "borrow.fine"
	ActionLogin          = "auth.login"
)

// Audit target types
const (
	TargetBook     = "book"
	TargetReader   = "reader"
	TargetCategory = "category"
	TargetBorrow   = "borrow"
)

// AuditEvent is the wire record of one mutating operation. It is published
// to the audit topic after the operation commits and persisted to
// system_logs by the audit worker.
type AuditEvent struct {
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ActorType   string    `json:"actor_type"`
	ActorID     int64     `json:"actor_id"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type,omitempty"`
	TargetID    int64     `json:"target_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Origin      string    `json:"origin,omitempty"`
}

// SystemLog is the persisted form of an AuditEvent.
type SystemLog struct {
	ID          int64     `db:"id" json:"id"`
	ActorType   string    `db:"actor_type" json:"actor_type"`
	ActorID     int64     `db:"actor_id" json:"actor_id"`
	Action      string    `db:"action" json:"action"`
	TargetType  string    `db:"target_type" json:"target_type,omitempty"`
	TargetID    int64     `db:"target_id" json:"target_id,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	Origin      string    `db:"origin" json:"origin,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
