package service

import "errors"

var (
	// ErrSyncInProgress is returned when a sync is requested while another runs.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrNotFound is returned for unknown maps and players.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery is returned for blank or malformed view parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotConfigured is returned when a required dependency was not provided.
	ErrNotConfigured = errors.New("service not configured")
	// ErrClosed is returned when a sync is requested after Close.
	ErrClosed = errors.New("service closed")
)
