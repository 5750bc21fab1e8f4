package storage

import "time"

type User struct {
	ID                     string
	Name                   string
	Timezone               string
	DefaultDurationMinutes int
	CreatedAt              time.Time
}

// AuditRecord is a stored audit entry. Before and After hold the JSON of the
// event on each side of the change and are empty when not applicable.
type AuditRecord struct {
	ID        string
	OwnerID   string
	Actor     string
	Action    string
	EventID   string
	Before    string
	After     string
	Reason    string
	CreatedAt time.Time
}

type ConversationTurn struct {
	ID        string
	OwnerID   string
	Message   string
	Response  string
	Kind      string
	CreatedAt time.Time
}

type AuditListFilter struct {
	OwnerID string
	EventID string
	Limit   int
	Offset  int
}

type ConversationListFilter struct {
	OwnerID string
	Limit   int
	Offset  int
}
