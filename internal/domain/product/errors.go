package product

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNetwork matches every NetworkError via errors.Is.
var ErrNetwork = errors.New("catalog source unavailable")

// NetworkError is the single failure kind of a catalog fetch: transport
// failure, non-success response or a payload that does not have the
// expected shape.
type NetworkError struct {
	// Op names the failed operation, e.g. "fetch products".
	Op  string
	URL string
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNetwork.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
