package zoom

import "fmt"

// AuthError means the provider rejected the service credentials or the bearer token.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("zoom authentication failed (HTTP %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("zoom authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProviderError means the provider accepted the credentials but the meeting operation did not
// succeed. StatusCode is zero when no response arrived (timeout, connection error).
// MeetingID is set when the provider created a meeting even though the operation failed;
// the caller owns deleting it.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
	MeetingID  string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("zoom %s failed (HTTP %d): %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("zoom %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
