package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrRateLimited indicates the catalog rejected the request with a
	// rate-limit status after all retries were exhausted
	ErrRateLimited = errors.New("catalog rate limit exceeded")

	// ErrNoDetail indicates the catalog has no public detail page for the id
	ErrNoDetail = errors.New("no public detail for app")

	// ErrRefreshInFlight indicates a refresh pass is already running
	ErrRefreshInFlight = errors.New("refresh already in progress")

	// ErrNotConfigured indicates an optional collaborator has no credentials
	ErrNotConfigured = errors.New("service not configured")

	// ErrTitleNotFound indicates a query resolved to zero cached titles
	ErrTitleNotFound = errors.New("title not found in cache")
)
