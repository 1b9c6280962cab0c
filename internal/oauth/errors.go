package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error. The HTTP status of a response is derived from it.
type Kind int

const (
	KindClient          Kind = iota // malformed request or client metadata
	KindGrant                       // code unknown, used, expired, mismatched or PKCE failure
	KindAuth                        // bearer credential missing, unknown or expired
	KindTransient                   // backend unavailable, safe to retry
	KindServer                      // unexpected failure
	KindNotFound                    // referenced record does not exist
	KindPermission                  // record exists but belongs to someone else
	KindUnauthenticated             // no end-user identity
	KindInvalidArgument             // completion parameters rejected
)

// OAuth error codes (RFC 6749 section 5.2, RFC 7591 section 3.2.2, RFC 7009).
const (
	CodeInvalidRequest         = "invalid_request"
	CodeInvalidClientMetadata  = "invalid_client_metadata"
	CodeUnsupportedGrantType   = "unsupported_grant_type"
	CodeInvalidGrant           = "invalid_grant"
	CodeInvalidToken           = "invalid_token"
	CodeServerError            = "server_error"
	CodeTemporarilyUnavailable = "temporarily_unavailable"
	CodeNotFound               = "not_found"
	CodePermissionDenied       = "permission_denied"
	CodeUnauthenticated        = "unauthenticated"
	CodeInvalidArgument        = "invalid_argument"
)

// Error is a protocol error carrying its kind, wire code and a
// client-safe description. Err holds the underlying cause, if any,
// and is never sent to clients.
type Error struct {
	Kind        Kind
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindClient, KindGrant, KindInvalidArgument:
		return http.StatusBadRequest
	case KindAuth, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts an *Error from err. Anything else is reported as a
// server_error so internal details never reach the client.
func AsError(err error) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}
	return errServer("internal server error", err)
}

func errInvalidRequest(desc string) *Error {
	return &Error{Kind: KindClient, Code: CodeInvalidRequest, Description: desc}
}

func errInvalidClientMetadata(desc string) *Error {
	return &Error{Kind: KindClient, Code: CodeInvalidClientMetadata, Description: desc}
}

func errUnsupportedGrantType(desc string) *Error {
	return &Error{Kind: KindClient, Code: CodeUnsupportedGrantType, Description: desc}
}

func errInvalidGrant(desc string) *Error {
	return &Error{Kind: KindGrant, Code: CodeInvalidGrant, Description: desc}
}

func errInvalidToken(desc string) *Error {
	return &Error{Kind: KindAuth, Code: CodeInvalidToken, Description: desc}
}

func errServer(desc string, err error) *Error {
	return &Error{Kind: KindServer, Code: CodeServerError, Description: desc, Err: err}
}

func errUnavailable(err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeTemporarilyUnavailable, Description: "Service temporarily unavailable", Err: err}
}

func errNotFound(desc string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Description: desc}
}

func errPermissionDenied(desc string) *Error {
	return &Error{Kind: KindPermission, Code: CodePermissionDenied, Description: desc}
}

func errUnauthenticated(desc string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: CodeUnauthenticated, Description: desc}
}

func errInvalidArgument(desc string) *Error {
	return &Error{Kind: KindInvalidArgument, Code: CodeInvalidArgument, Description: desc}
}
