package constants

import "errors"

// Transport errors.
var (
	ErrTransport          = errors.New("transport failure")
	ErrUnexpectedStatus   = errors.New("unexpected status code")
	ErrUnsupportedBody    = errors.New("request cannot carry both a form and a JSON body")
	ErrMissingAccessToken = errors.New("token response has no access_token")
	ErrInterceptor        = errors.New("interceptor rejected the request")
)

// Catalog errors.
var (
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownTransport = errors.New("unknown transport")
	ErrMissingQuery     = errors.New("graphql entry requires a query")
	ErrMissingPath      = errors.New("rest entry requires a path")
)
