package tracker

import "errors"

// Failure kinds of an update cycle. Errors returned by the fetcher and the
// aggregators wrap exactly one of these.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrDataMissing         = errors.New("instrument data missing")
	ErrPersistence         = errors.New("persistence failure")

	ErrCycleInProgress = errors.New("update cycle already in progress")
)

// ErrorKind names the failure kind of err for logs and status output.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrDataMissing):
		return "data_missing"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrCycleInProgress):
		return "cycle_in_progress"
	default:
		return "unknown"
	}
}
