package shared

import "errors"

var (
	// ErrNotFound indicates resource not found within the tenant scope.
	ErrNotFound = errors.New("not found")
	// ErrTenantMismatch indicates a cross-document link whose tenants differ.
	ErrTenantMismatch = errors.New("documents belong to different tenants")
	// ErrInvalidAPIKey indicates a missing or unrecognised tenant API key.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrInvalidArgument indicates a well-formed request with values the
	// target operation cannot accept.
	ErrInvalidArgument = errors.New("invalid argument")
)
