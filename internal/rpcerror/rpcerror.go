// Package rpcerror is the remote client's error taxonomy: a single Error
// type subsets every HTTP/network outcome the server can produce into the
// route-independent variants spec §4.8 describes, so callers switch on one
// enum instead of per-route error types.
package rpcerror

import "net/http"

// Kind enumerates every distinct outcome the remote client can report.
type Kind int

const (
	// KindTimeout: the network request exceeded its deadline.
	KindTimeout Kind = iota
	// KindOther: a non-timeout transport failure, or an HTTP 502.
	KindOther
	// KindServerError: HTTP 500 or 503 — the server is unhealthy.
	KindServerError
	// KindNotFound: HTTP 404.
	KindNotFound
	// KindNotAFile: HTTP 409 "Not A File".
	KindNotAFile
	// KindNotADirectory: HTTP 409 "Not A Directory".
	KindNotADirectory
	// KindAlreadyExists: HTTP 409 "Already Exists".
	KindAlreadyExists
	// KindDirectoryNotEmpty: HTTP 409 "Directory Not Empty".
	KindDirectoryNotEmpty
	// KindModified: HTTP 412 — the caller's expected hash is stale.
	KindModified
	// KindNotModified: HTTP 304.
	KindNotModified
	// KindProtocolMismatch: a response that doesn't fit the documented wire contract.
	KindProtocolMismatch
)

// Error is the single error type the remote client returns.
type Error struct {
	Kind       Kind
	Location   string // populated for KindAlreadyExists
	StatusCode int    // 0 for network-level errors
	msg        string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return e.Kind.String()
}

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "network timeout"
	case KindOther:
		return "network error"
	case KindServerError:
		return "server error"
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
	case KindProtocolMismatch:
		return "protocol mismatch"
	default:
		return "unknown rpc error"
	}
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Timeout constructs a KindTimeout error.
func Timeout(msg string) *Error { return New(KindTimeout, msg) }

// Other constructs a KindOther error.
func Other(msg string) *Error { return New(KindOther, msg) }

// conflictBody maps the exact 409 response bodies spec §6 defines to their
// Kind. Any other body on a 409 is a protocol mismatch.
var conflictBody = map[string]Kind{
	"Not A File":          KindNotAFile,
	"Not A Directory":     KindNotADirectory,
	"Already Exists":      KindAlreadyExists,
	"Directory Not Empty": KindDirectoryNotEmpty,
}

// FromHTTPStatus classifies a completed HTTP response per spec §4.8's
// wire-to-variant map. body is the raw response body (already read), and
// location is the Location header value, needed only for 409 Already
// Exists.
func FromHTTPStatus(status int, body string, location string) *Error {
	switch status {
	case http.StatusBadGateway:
		return New(KindOther, "upstream transport error")
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return New(KindServerError, "server error")
	case http.StatusNotFound:
		return New(KindNotFound, "not found")
	case http.StatusConflict:
		if kind, ok := conflictBody[body]; ok {
			e := New(kind, body)
			e.Location = location
			return e
		}
		return New(KindProtocolMismatch, "unrecognized conflict body: "+body)
	case http.StatusPreconditionFailed:
		return New(KindModified, "modified")
	case http.StatusNotModified:
		return New(KindNotModified, "not modified")
	default:
		return New(KindProtocolMismatch, "unexpected status")
	}
}
