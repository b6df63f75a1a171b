package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the kind of role change being recorded.
type Action string

// Recorded actions. The set is closed; new actions require a migration of
// downstream consumers.
const (
	ActionGrant         Action = "GRANT"
	ActionRevoke        Action = "REVOKE"
	ActionContextSwitch Action = "CONTEXT_SWITCH"
)

// Entry is one immutable fact in the audit trail. Role names are stored by
// value so history survives role renames.
type Entry struct {
	ID                uuid.UUID
	ActorID           *int64
	TargetPrincipalID int64
	Action            Action
	RoleName          string
	Details           string
	At                time.Time
}

// HistoryFilters narrows a history query. Zero times mean unbounded.
type HistoryFilters struct {
	Since    time.Time
	Until    time.Time
	Page     int
	PageSize int
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps a history page with paging information.
type Result struct {
	Entries []Entry
	Paging  PagingInfo
}
