package llm

import "fmt"

// UpstreamError reports a failed call to the model provider. Status is the
// HTTP status code, or 0 when the request never got a response. Detail carries
// the provider's error body so callers can surface it.
type UpstreamError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("provider %s failed (HTTP %d): %s", e.Op, e.Status, e.Detail)
	default:
		return fmt.Sprintf("provider %s failed (HTTP %d)", e.Op, e.Status)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
