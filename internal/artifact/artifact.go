// Package artifact provides content-addressed, optionally compressed
// persistence for the data produced during a session.
//
// An artifact's identifier is the BLAKE3 digest of its uncompressed
// payload: byte-identical content within a session always maps to the
// same id, so repeated stores deduplicate to a no-op. Payloads above the
// compression threshold are stored LZ4-compressed when that actually
// shrinks them; callers never observe compression.
//
// Key operations:
//
//   - [Store.Put]: hash, dedup, conditionally compress, persist atomically
//   - [Store.Get]: load, transparently decompress, verify content hash
//   - [Store.Query]: filter a session's artifacts by type and name prefix
//   - [Store.DeleteForSession]: cascade removal when a session is deleted
package artifact

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies an artifact's origin. The set is closed.
type Type string

const (
	TypeUserInput     Type = "user_input"
	TypeToolOutput    Type = "tool_output"
	TypeGeneratedFile Type = "generated_file"
	TypeOther         Type = "other"
)

// Valid reports whether t is a member of the closed type set.
func (t Type) Valid() bool {
	switch t {
	case TypeUserInput, TypeToolOutput, TypeGeneratedFile, TypeOther:
		return true
	}
	return false
}

// StorageVersion is written into every metadata record so future format
// changes can be detected on read.
const StorageVersion uint32 = 1

// Metadata describes a stored artifact. It doubles as the summary type
// returned by queries.
//
// SizeBytes is always the original (pre-compression) length;
// StoredBytes is what actually went to the state store.
type Metadata struct {
	ID             string    `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	Type           Type      `json:"type"`
	Name           string    `json:"name"`
	SizeBytes      int64     `json:"size_bytes"`
	StoredBytes    int64     `json:"stored_bytes"`
	Compressed     bool      `json:"compressed"`
	CreatedAt      time.Time `json:"created_at"`
	StorageVersion uint32    `json:"storage_version"`
}

// Artifact is a metadata record together with its (uncompressed) payload.
type Artifact struct {
	Metadata Metadata
	Payload  []byte
}

// Filter narrows a Query. Zero values mean "no constraint".
type Filter struct {
	Type       Type   // match exact type
	NamePrefix string // match names starting with this prefix
	Descending bool   // sort by CreatedAt descending instead of ascending
	Limit      int    // 0 = unlimited
	Offset     int
}

// Stats accumulates per-session storage accounting, updated atomically
// with every put and reset on cascade delete.
type Stats struct {
	ArtifactCount int64     `json:"artifact_count"`
	TotalBytes    int64     `json:"total_bytes"`
	Deduplicated  int64     `json:"deduplicated"`
	UpdatedAt     time.Time `json:"updated_at"`
}
