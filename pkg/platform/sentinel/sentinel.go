package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) and
// the cycle service translates them into domain errors:
//   - ErrNotFound: no such cycle, or no archived snapshot for it
//   - ErrConflict: a uniqueness rule rejected the write (second active cycle,
//     duplicate cycle number, second audit record for a cycle)
//   - ErrInvalidState: the cycle is not in the status the write requires
//   - ErrUnavailable: a backing service could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
