package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is the registry's durable record of one session.
//
// ArtifactCount and TotalBytes are storage accounting filled in from the
// artifact store when a session is read through the manager; the
// registry itself does not maintain them.
type Session struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ArtifactCount int64 `json:"artifact_count,omitempty"`
	TotalBytes    int64 `json:"total_bytes,omitempty"`
}

// HasTag reports whether the session carries the given tag.
func (s *Session) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CreateOptions carries the optional metadata for a new session.
// The zero value is valid: an anonymous, untagged session.
type CreateOptions struct {
	Name        string
	Description string
	Tags        []string
}

// SortBy selects the ordering of List results.
type SortBy string

const (
	SortByCreatedAt SortBy = "created_at"
	SortByUpdatedAt SortBy = "updated_at"
	SortByName      SortBy = "name"
)

// Query filters and orders List results. Zero values mean "no
// constraint"; the default sort is CreatedAt ascending.
type Query struct {
	State        State    // match exact state
	Tags         []string // sessions must carry all listed tags
	NameContains string   // substring match on name or description
	SortBy       SortBy
	Descending   bool
	Limit        int // 0 = unlimited
	Offset       int
}
