package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/ppiankov/vocabdeck/internal/llm"
)

// ErrParseFailure marks a reply that is not a JSON array of objects
var ErrParseFailure = errors.New("annotation parse failure")

// ErrProviderUnavailable is returned when the annotation service fails its
// availability check before the first batch
var ErrProviderUnavailable = errors.New("annotation service unavailable")

// Outcome is the result class of one attempt at a batch
type Outcome int

const (
	Success Outcome = iota
	RetryableFailure
	FatalAbort
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable"
	case FatalAbort:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error text that signals a rate or usage limit. Providers without a
// structured quota signal only surface these in free text.
var quotaMarkers = []string{
	"429",
	"quota",
	"rate limit",
	"ratelimit",
	"rate_limit",
	"resource_exhausted",
	"resource exhausted",
	"too many requests",
}

// Classify sorts an attempt error into an Outcome. Quota errors and
// cancellation end the run; anything else may be retried. Parse failures
// carry model text, so they never go through the quota markers.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, llm.ErrQuotaExceeded):
		return FatalAbort
	case errors.Is(err, context.Canceled):
		return FatalAbort
	case errors.Is(err, ErrParseFailure):
		return RetryableFailure
	case isQuotaText(err.Error()):
		return FatalAbort
	default:
		return RetryableFailure
	}
}

func isQuotaText(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
