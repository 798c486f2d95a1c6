package api

import "fmt"

// Error is a failure reported by the platform, either as a non-zero
// envelope code or a non-2xx HTTP status.
type Error struct {
	Status  int    // HTTP status, 0 when the request never completed
	Code    int    // envelope code, non-zero for business errors
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}
