package errors

import "errors"

var (
	ErrBadConfig            = errors.New("config: invalid config")
	ErrNoPolicy             = errors.New("config: no any required options defined")
	ErrConflictingPolicies  = errors.New("config: too many selectors defined, use only one")
	ErrMissingTagRegex      = errors.New("config: regex must be provided when tagged-keep-latest set")
	ErrNotANumber           = errors.New("config: value is not number")
	ErrBadTagRegex          = errors.New("config: tag regex could not be compiled")
	ErrUnsupportedOwnerType = errors.New("config: unsupported owner type")
	ErrTagNotFound          = errors.New("retention: package with tag does not exist")
	ErrNegativeKeepCount    = errors.New("retention: keep count must not be negative")
	ErrSourceFailed         = errors.New("source: failed to list package versions")
	ErrDeleteFailed         = errors.New("delete: failed to delete package version")
	ErrBadMetricsTextfile   = errors.New("metrics: failed to write textfile")
)
