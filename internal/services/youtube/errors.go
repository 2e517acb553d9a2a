package youtube

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrAuth means the credentials are missing or were rejected.
	ErrAuth = errors.New("youtube authentication failed")
	// ErrQuota means the API quota or rate limit was exhausted.
	ErrQuota = errors.New("youtube quota exceeded")
)

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"dailyLimitExceeded":    true,
	"userRateLimitExceeded": true,
}

// Classify wraps err with ErrAuth or ErrQuota when the API response says so.
// Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrAuth) || errors.Is(err, ErrQuota) {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return fmt.Errorf("%w: %v", ErrQuota, err)
		}
	}
	switch apiErr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrQuota, err)
	}
	return err
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrQuota)
}
