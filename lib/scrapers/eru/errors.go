package eru

import "fmt"

// TransportError is returned when a page could not be retrieved, either
// because the request failed or the server answered with a non-2xx status.
type TransportError struct {
	Url       string
	LicenceID string
	// Status is 0 when no response was received.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Url, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Url, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
