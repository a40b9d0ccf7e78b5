// Package apierror defines the small closed set of user-visible errors the
// inkfs server can return, each mapped to one HTTP status and response body.
// Anything that isn't one of these is an internal error: it is logged with
// full context and rendered to the wire as a bare 500, never merged with
// this taxonomy (spec §7).
package apierror

import (
	"errors"
	"net/http"
)

// Kind is one of the user-visible error kinds the metadata store and
// content store report back to the HTTP handlers.
type Kind int

const (
	// KindNotFound: the referenced node does not exist.
	KindNotFound Kind = iota
	// KindNotAFile: the referenced node is a directory, not a file.
	KindNotAFile
	// KindNotADirectory: the referenced node is a file, not a directory.
	KindNotADirectory
	// KindAlreadyExists: a directory entry with that (parent, name) exists.
	KindAlreadyExists
	// KindDirectoryNotEmpty: a directory delete was attempted on a non-empty directory.
	KindDirectoryNotEmpty
	// KindModified: a conditional write/read's expected hash did not match current state.
	KindModified
	// KindNotModified: a conditional read's If-None-Match matched current state.
	KindNotModified
	// KindPreconditionRequired: a write arrived without If-Match.
	KindPreconditionRequired
	// KindBadRequest: a malformed conditional header or request body.
	KindBadRequest
)

// Error is a user-visible error carrying its Kind and, for KindAlreadyExists,
// the Location URL of the pre-existing child.
type Error struct {
	Kind     Kind
	Location string // populated only for KindAlreadyExists
	msg      string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return e.Kind.String()
}

// New constructs an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// NewAlreadyExists constructs a KindAlreadyExists error carrying the
// location of the existing child.
func NewAlreadyExists(location string) *Error {
	return &Error{Kind: KindAlreadyExists, Location: location, msg: "already exists"}
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindNotAFile:
		return "not a file"
	case KindNotADirectory:
		return "not a directory"
	case KindAlreadyExists:
		return "already exists"
	case KindDirectoryNotEmpty:
		return "directory not empty"
	case KindModified:
		return "modified"
	case KindNotModified:
		return "not modified"
	case KindPreconditionRequired:
		return "precondition required"
	case KindBadRequest:
		return "bad request"
	default:
		return "unknown"
	}
}

// Body is the exact response body spec §6 defines for 409 responses; for
// other statuses the body is informational only and not pattern-matched by
// the remote client.
func (k Kind) Body() string {
	switch k {
	case KindNotAFile:
		return "Not A File"
	case KindNotADirectory:
		return "Not A Directory"
	case KindAlreadyExists:
		return "Already Exists"
	case KindDirectoryNotEmpty:
		return "Directory Not Empty"
	default:
		return k.String()
	}
}

// Status returns the HTTP status spec §6 assigns to this Kind.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindNotAFile, KindNotADirectory, KindAlreadyExists, KindDirectoryNotEmpty:
		return http.StatusConflict
	case KindModified:
		return http.StatusPreconditionFailed
	case KindNotModified:
		return http.StatusNotModified
	case KindPreconditionRequired:
		return http.StatusPreconditionRequired
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err via errors.As semantics without importing
// the errors package twice at call sites; kept as a tiny helper because
// handlers call it constantly.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
