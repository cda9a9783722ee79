package entity

import "time"

// AuditLog records a security relevant account event.
type AuditLog struct {
	ID         int64
	UserID     string
	Identifier string
	Action     string
	IP         string
	UserAgent  string
	Metadata   map[string]any
	CreatedAt  time.Time
}
