package freepbx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed FreePBX operation.
type ErrorKind int

const (
	// KindUnknown is the zero value and never produced by the client.
	KindUnknown ErrorKind = iota
	// KindToken means the token endpoint rejected the credentials or
	// returned a response without an access token.
	KindToken
	// KindGraphQLTransport means the GraphQL HTTP call failed after retries.
	KindGraphQLTransport
	// KindGraphQLValidation means the GraphQL call returned an errors array.
	KindGraphQLValidation
	// KindRESTTransport means the REST HTTP call failed after retries.
	KindRESTTransport
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindGraphQLTransport:
		return "graphql_transport"
	case KindGraphQLValidation:
		return "graphql_validation"
	case KindRESTTransport:
		return "rest_transport"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation that fails while talking to
// FreePBX. Body holds the upstream response body unmodified; Errors holds
// the GraphQL errors array for KindGraphQLValidation.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Errors     []map[string]interface{}
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindToken:
		return "failed to get FreePBX token: " + e.detail()
	case KindGraphQLTransport:
		return "FreePBX GraphQL error: " + e.detail()
	case KindGraphQLValidation:
		encoded, err := json.Marshal(e.Errors)
		if err != nil {
			return fmt.Sprintf("FreePBX GraphQL error: %v", e.Errors)
		}

		return "FreePBX GraphQL error: " + string(encoded)
	case KindRESTTransport:
		return "FreePBX REST API error: " + e.detail()
	default:
		return "FreePBX error: " + e.detail()
	}
}

func (e *Error) detail() string {
	if e.Body != "" {
		return e.Body
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("status %d", e.StatusCode)
	}

	return "no response"
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the kind
// sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Messages returns the message field of each GraphQL error.
func (e *Error) Messages() []string {
	messages := make([]string, 0, len(e.Errors))

	for _, item := range e.Errors {
		if msg, ok := item["message"].(string); ok {
			messages = append(messages, msg)
		}
	}

	return messages
}

// Kind sentinels for errors.Is.
var (
	ErrTokenFailed       = &Error{Kind: KindToken}
	ErrGraphQLTransport  = &Error{Kind: KindGraphQLTransport}
	ErrGraphQLValidation = &Error{Kind: KindGraphQLValidation}
	ErrRESTTransport     = &Error{Kind: KindRESTTransport}
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrInvalidConfig         = errors.New("invalid config")
	ErrUnsupportedVerb       = errors.New("unsupported HTTP verb")
	ErrUnexpectedResponse    = errors.New("unexpected response from FreePBX")
	ErrCacheKeyNotFound      = errors.New("key not found")
	ErrCacheEntryExpired     = errors.New("entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
)

// NewTokenError builds a KindToken error.
func NewTokenError(statusCode int, body string, cause error) *Error {
	return &Error{Kind: KindToken, StatusCode: statusCode, Body: body, Err: cause}
}

// NewGraphQLTransportError builds a KindGraphQLTransport error.
func NewGraphQLTransportError(statusCode int, body string, cause error) *Error {
	return &Error{Kind: KindGraphQLTransport, StatusCode: statusCode, Body: body, Err: cause}
}

// NewGraphQLValidationError builds a KindGraphQLValidation error.
func NewGraphQLValidationError(errs []map[string]interface{}) *Error {
	return &Error{Kind: KindGraphQLValidation, Errors: errs}
}

// NewRESTError builds a KindRESTTransport error.
func NewRESTError(statusCode int, body string, cause error) *Error {
	return &Error{Kind: KindRESTTransport, StatusCode: statusCode, Body: body, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	pbxErr := &Error{}
	if errors.As(err, &pbxErr) {
		return pbxErr.Kind
	}

	return KindUnknown
}

// IsTokenError checks if the error is a token acquisition failure.
func IsTokenError(err error) bool {
	return KindOf(err) == KindToken
}

// IsGraphQLTransportError checks if the error is a GraphQL transport failure.
func IsGraphQLTransportError(err error) bool {
	return KindOf(err) == KindGraphQLTransport
}

// IsGraphQLValidationError checks if the error is a GraphQL validation failure.
func IsGraphQLValidationError(err error) bool {
	return KindOf(err) == KindGraphQLValidation
}

// IsRESTError checks if the error is a REST transport failure.
func IsRESTError(err error) bool {
	return KindOf(err) == KindRESTTransport
}
