package transcript

import "errors"

// Sentinel errors classifying reconcile and merge failures. Callers match
// with errors.Is to choose a response; anything wrapping
// ErrTransientProvider is safe to retry, nothing else is.
var (
	// ErrTransientProvider marks network, timeout, or 5xx failures from
	// the provider. Stored state is left untouched when it is returned.
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrMalformedCaptions marks a ready caption artifact that parsed to
	// zero usable segments. Surfaces as a failed record, not an error.
	ErrMalformedCaptions = errors.New("malformed caption content")

	// ErrInvalidSubmission marks a client submission rejected before any
	// store mutation.
	ErrInvalidSubmission = errors.New("invalid client submission")

	// ErrNotAvailable marks a caption artifact the provider has not
	// finished producing. Surfaces as a pending record, not an error.
	ErrNotAvailable = errors.New("caption artifact not yet available")

	// ErrNotFound means no transcript record exists for the interview.
	ErrNotFound = errors.New("transcript not found")
)
