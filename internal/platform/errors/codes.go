package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Registry errors
	CodeSystemNotSupported  Code = "SYSTEM_NOT_SUPPORTED"
	CodeSystemConfigInvalid Code = "SYSTEM_CONFIG_INVALID"

	// Undo/redo structural errors
	CodeSceneIDMissing Code = "SCENE_ID_MISSING"
	CodeSceneDeleted   Code = "SCENE_DELETED"
	CodeTokenIDMissing Code = "TOKEN_ID_MISSING"
	CodeTokenDeleted   Code = "TOKEN_DELETED"

	// Authority errors
	CodeNoUndoAuthority Code = "NO_UNDO_AUTHORITY"
	CodeUndoNotAllowed  Code = "UNDO_NOT_ALLOWED"

	// Ledger errors
	CodeEntryNotFound Code = "ENTRY_NOT_FOUND"
	CodeEntryEmpty    Code = "ENTRY_EMPTY"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// WireCode maps domain codes to the transport's error code vocabulary.
func (c Code) WireCode() string {
	switch c {
	case CodeSystemConfigInvalid, CodeEntryEmpty:
		return "INVALID_ARGUMENT"

	case CodeSystemNotSupported,
		CodeSceneIDMissing,
		CodeSceneDeleted,
		CodeTokenIDMissing,
		CodeTokenDeleted,
		CodeNoUndoAuthority:
		return "FAILED_PRECONDITION"

	case CodeUndoNotAllowed:
		return "FORBIDDEN"

	case CodeNotFound, CodeEntryNotFound:
		return "NOT_FOUND"

	default:
		return "INTERNAL"
	}
}
