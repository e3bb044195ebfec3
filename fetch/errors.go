package fetch

import (
	"errors"
	"fmt"
)

// ErrEmptyBody is wrapped by FetchError when an origin answers 200 with no bytes.
var ErrEmptyBody = errors.New("empty response body")

// FetchError reports a failed remote fetch: transport error, timeout,
// non-200 status or empty body. Nothing is cached when it occurs.
type FetchError struct {
	Name   string
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %q from %s: status %d", e.Name, e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %q from %s: %v", e.Name, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CorruptAssetError reports bytes that could not be decoded as an image,
// either read from the store or received from an origin.
type CorruptAssetError struct {
	Name string
	Err  error
}

func (e *CorruptAssetError) Error() string {
	return fmt.Sprintf("corrupt asset %q: %v", e.Name, e.Err)
}

func (e *CorruptAssetError) Unwrap() error { return e.Err }
