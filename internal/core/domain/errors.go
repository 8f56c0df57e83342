package domain

import "fmt"

// UpdateFailedError marks a poll that could not refresh the snapshot. The
// device is reported unavailable until the next successful poll.
type UpdateFailedError struct {
	UUID string
	Err  error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("update of device %s failed: %v", e.UUID, e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}
