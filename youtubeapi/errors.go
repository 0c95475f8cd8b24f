package youtubeapi

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrQuotaExhausted is returned when every configured credential reported a quota error.
var ErrQuotaExhausted = errors.New("youtube quota exhausted on all credentials")

// ErrorClass represents whether a failed call may be retried with another credential.
type ErrorClass int

const (
	// ErrorClassQuota indicates a quota or rate limit on the credential used; rotation may help.
	ErrorClassQuota ErrorClass = iota
	// ErrorClassOther covers every other failure (network, auth, not found, server errors).
	ErrorClassOther
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassQuota:
		return "quota"
	default:
		return "other"
	}
}

// quotaReasons are the googleapi error reasons YouTube uses for per-credential limits.
var quotaReasons = map[string]struct{}{
	"quotaExceeded":         {},
	"rateLimitExceeded":     {},
	"dailyLimitExceeded":    {},
	"userRateLimitExceeded": {},
}

// ClassifyError separates quota exhaustion from every other failure.
//
// Quota errors:
//   - HTTP 429 Too Many Requests
//   - HTTP 403 with reason quotaExceeded, rateLimitExceeded, dailyLimitExceeded or userRateLimitExceeded
//
// A 403 with any other reason (forbidden, liveChatDisabled, ...) is not a quota error.
func ClassifyError(err error) ErrorClass {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return ErrorClassOther
	}
	if gerr.Code == http.StatusTooManyRequests {
		return ErrorClassQuota
	}
	if gerr.Code != http.StatusForbidden {
		return ErrorClassOther
	}
	for _, item := range gerr.Errors {
		if _, ok := quotaReasons[item.Reason]; ok {
			return ErrorClassQuota
		}
	}
	return ErrorClassOther
}

// IsQuotaError reports whether err should trigger credential rotation.
func IsQuotaError(err error) bool {
	return err != nil && ClassifyError(err) == ErrorClassQuota
}
