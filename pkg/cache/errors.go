package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss indicates the key was not present in the cache.
var ErrCacheMiss = errors.New("cache miss")

// RetryableError wraps an error that may succeed on retry, such as a
// transient network failure talking to a remote backend.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryWithBackoff runs fn up to 3 times with exponential backoff,
// retrying only errors marked retryable.
func RetryWithBackoff(fn func() error) error {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if i < attempts-1 {
			time.Sleep(time.Duration(1<<i) * 100 * time.Millisecond)
		}
	}
	return err
}
