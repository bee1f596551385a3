// ABOUTME: Typed errors for the content-addressed store: missing artifacts and backend I/O failures.
// ABOUTME: NotFoundError and StorageError support errors.As matching through wrapped chains.
package cas

import "fmt"

// NotFoundError indicates that no artifact with the requested digest has been stored.
type NotFoundError struct {
	Digest Digest
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact %s not found", e.Digest)
}

// StorageError indicates a backend I/O failure. Puts are all-or-nothing: a
// StorageError never leaves a partial object visible in the store.
type StorageError struct {
	Op     string // "put", "get", "stat"
	Digest Digest
	Err    error
}

func (e *StorageError) Error() string {
	if e.Digest != "" {
		return fmt.Sprintf("cas %s %s: %v", e.Op, e.Digest, e.Err)
	}
	return fmt.Sprintf("cas %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
