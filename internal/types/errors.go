package types

import "errors"

// Sentinel errors for rulebuilder operations.
var (
	// ErrInvalidPath indicates a path does not address a node of the expected kind.
	ErrInvalidPath = errors.New("invalid tree path")

	// ErrIndexOutOfRange indicates a child index outside the group's children.
	ErrIndexOutOfRange = errors.New("child index out of range")

	// ErrInvalidCombinator indicates a combinator other than AND/OR.
	ErrInvalidCombinator = errors.New("invalid group combinator")

	// ErrUnknownProperty indicates a property absent from the attribute catalog.
	ErrUnknownProperty = errors.New("property not in attribute catalog")

	// ErrInvalidOperator indicates an operator not offered for the condition's data type.
	ErrInvalidOperator = errors.New("invalid operator for data type")

	// ErrCoercionFailed indicates a value cannot be converted to the requested type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrUnknownEdit indicates an edit kind the controller does not understand.
	ErrUnknownEdit = errors.New("unknown edit kind")

	// ErrUpdateInProgress indicates an update arrived while another was applying.
	ErrUpdateInProgress = errors.New("update already in progress")

	// ErrInvalidTree indicates a tree failed pre-save validation.
	ErrInvalidTree = errors.New("rule tree is invalid")

	// ErrSessionNotFound indicates an unknown editing session.
	ErrSessionNotFound = errors.New("editing session not found")

	// ErrTooManySessions indicates the open session limit is reached.
	ErrTooManySessions = errors.New("too many open editing sessions")

	// ErrDraftNotFound indicates no stored draft exists for the rule.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrFieldNotFound indicates a property path does not resolve in a sample record.
	ErrFieldNotFound = errors.New("field not found in record")

	// ErrPathTooDeep indicates a property path with more than MaxPathDepth segments.
	ErrPathTooDeep = errors.New("property path too deep")

	// ErrRemoteUnavailable indicates the remote rule service failed.
	ErrRemoteUnavailable = errors.New("remote rule service unavailable")
)
