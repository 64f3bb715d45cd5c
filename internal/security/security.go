package security

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrAccessDenied indicates an operation was rejected by isolation
// policy. The message deliberately carries no session ids: it must not
// reveal whether the target session exists.
var ErrAccessDenied = errors.New("access denied")

// IsolationMode governs whether operations may cross session boundaries.
type IsolationMode string

const (
	// IsolationStrict rejects any operation targeting a session other
	// than the one the context authorizes. Default.
	IsolationStrict IsolationMode = "strict"

	// IsolationShared permits cross-session access. Explicit opt-in;
	// intended for trusted embedding hosts, never for script callers.
	IsolationShared IsolationMode = "shared"
)

// Context authorizes operations on behalf of one session. The zero
// value authorizes nothing: CheckAccess on it always denies under
// strict isolation unless the target is also the nil UUID, which no
// live session ever carries.
type Context struct {
	SessionID uuid.UUID
	Mode      IsolationMode
}

// Manager issues authorization contexts and validates access against
// them. Safe for concurrent use; it holds no mutable state.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates an access control manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Authorize establishes a strict-isolation context for sessionID.
// Called once per session lifecycle entry point.
func (m *Manager) Authorize(sessionID uuid.UUID) Context {
	return Context{SessionID: sessionID, Mode: IsolationStrict}
}

// AuthorizeShared establishes a shared-isolation context for sessionID.
// The context still identifies the caller for audit logging, but
// CheckAccess will not reject cross-session targets.
func (m *Manager) AuthorizeShared(sessionID uuid.UUID) Context {
	return Context{SessionID: sessionID, Mode: IsolationShared}
}

// CheckAccess validates that ctx may operate on target. Under strict
// isolation it succeeds iff ctx authorizes exactly that session; under
// shared isolation it always succeeds.
func (m *Manager) CheckAccess(ctx Context, target uuid.UUID) error {
	if ctx.Mode == IsolationShared {
		return nil
	}
	if ctx.SessionID == target {
		return nil
	}

	// Audit trail names only the caller, never the target.
	m.logger.Warn("cross-session access denied",
		"caller_session_id", ctx.SessionID,
		"isolation_mode", ctx.Mode,
	)
	return ErrAccessDenied
}
