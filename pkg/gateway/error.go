package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error wraps provider errors with status metadata.
type Error struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "gateway error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("gateway error (status=%d)", e.Status)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry once at the handler
// level. The dispatcher itself never retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		if gwErr.Temporary {
			return true
		}
		if gwErr.Status == 429 || (gwErr.Status >= 500 && gwErr.Status <= 599) {
			return true
		}
	}
	return false
}
