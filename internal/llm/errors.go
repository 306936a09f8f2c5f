package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var (
	ErrDisabled       = errors.New("llm disabled")
	ErrUnavailable    = errors.New("llm backend unavailable")
	ErrTimeout        = errors.New("llm request timed out")
	ErrRejected       = errors.New("llm backend rejected the request")
	ErrInvalidOutput  = errors.New("invalid llm output format")
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)

// StatusError is a non-2xx answer from a backend. Client errors other than
// 408 and 429 unwrap to ErrRejected and are never retried.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return nil
	case e.Code >= 400 && e.Code < 500:
		return ErrRejected
	}
	return nil
}

// retry runs attempt up to 1+retries times, sleeping n*backoff before the
// nth retry. A rejected request or a done parent context stops early.
func retry(ctx context.Context, retries int, backoff time.Duration, attempt func(context.Context) error) error {
	var err error
	for n := 0; n <= retries; n++ {
		if n > 0 {
			t := time.NewTimer(time.Duration(n) * backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return classify(ctx.Err())
			case <-t.C:
			}
		}
		if err = attempt(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return classify(ctx.Err())
		}
		if errors.Is(err, ErrRejected) {
			break
		}
	}
	return classify(err)
}

// classify maps a failed call onto the package sentinels.
func classify(err error) error {
	var netErr *net.OpError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRejected), errors.Is(err, ErrInvalidOutput):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	case errors.As(err, &netErr):
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrRetryExhausted, err)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrRejected):
		return "REJECTED"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	default:
		return "UNKNOWN"
	}
}
