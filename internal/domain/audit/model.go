// Package audit records who changed what. Every mutation of an audited
// table writes exactly one entry here, inside the same transaction as
// the mutation itself.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Entry is one immutable audit-log row. OldValues and NewValues hold
// JSON snapshots of the record before and after the change; either may
// be absent depending on the action.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	// Username is joined from the users table for display. Entries
	// whose user has since been deleted carry an empty username.
	Username string `json:"username,omitempty"`
}

// Filter narrows an audit-log listing.
type Filter struct {
	Action    string
	TableName string
	UserID    *uuid.UUID
}
