package registry

import "errors"

// Sentinel errors for registry loading.
var (
	ErrRegistryNotFound = errors.New("map registry not found")
	ErrRegistryEmpty    = errors.New("map registry has no valid entries")
	ErrRegistryRead     = errors.New("map registry read failed")
)
