package session

import "errors"

// Sentinel errors for the session taxonomy. Operations wrap these with
// %w and context; callers classify with errors.Is. Every failure leaves
// the session in the last valid state.
var (
	// ErrInvalidInput: malformed create/apply/message arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState: mutation attempted on a terminal session, or a
	// second terminal transition.
	ErrInvalidState = errors.New("invalid session state")
	// ErrNotFound: no session under the id.
	ErrNotFound = errors.New("session not found")
	// ErrForbidden: the requester does not own the session.
	ErrForbidden = errors.New("forbidden")
	// ErrOutOfRange: revert index outside the version history.
	ErrOutOfRange = errors.New("version index out of range")
	// ErrQuotaExceeded: plan limit reached; raised before the provider is
	// invoked so the rejected call is never metered.
	ErrQuotaExceeded = errors.New("token quota exceeded")
	// ErrProvider: completion provider failure or timeout. Safe for the
	// caller to retry; the core never retries because tokens may already
	// have been charged.
	ErrProvider = errors.New("completion provider failure")
	// ErrEntitlements: the entitlements collaborator could not answer the
	// quota check. Distinct from ErrProvider so callers do not mistake it
	// for a completion failure, and from ErrQuotaExceeded because no
	// decision was reached.
	ErrEntitlements = errors.New("entitlements lookup failure")
	// ErrDocStore: the document store could not persist the final
	// content. Complete fails without the terminal transition, so the
	// session stays active and the call can be retried.
	ErrDocStore = errors.New("document store failure")
)
