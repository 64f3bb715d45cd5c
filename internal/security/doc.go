// Package security enforces session-scoped access control.
//
// # Overview
//
// Every artifact and registry operation exposed by the manager routes
// through an access check before touching persisted state. A caller
// holds a [Context] authorizing exactly one session; under the default
// [IsolationStrict] mode, operations targeting any other session fail
// with [ErrAccessDenied]. [IsolationShared] is an explicit opt-in that
// disables the cross-session check, for trusted embedding hosts only.
//
//	secCtx := secmgr.Authorize(sessionID)
//	if err := secmgr.CheckAccess(secCtx, targetID); err != nil {
//	    return err // ErrAccessDenied
//	}
//
// # Design Philosophy
//
//   - Fail-secure: when in doubt, deny access.
//   - No information leaks: ErrAccessDenied never names the target
//     session and never reveals whether it exists (CWE-204, response
//     discrepancy).
//   - Mandatory threading: the Context appears in every public manager
//     method signature, so a missing check is a compile error rather
//     than a runtime oversight.
//
// # Error Handling
//
// The manager intentionally both logs and returns denials. This is a
// deliberate exception to the "handle errors once" rule: security
// events require an audit trail (via logging) AND must propagate to
// callers so they can deny the operation. The log entry carries the
// caller's session id; the returned error carries neither side.
package security
