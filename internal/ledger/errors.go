package ledger

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the backend has no record of the requested object
	ErrNotFound = errors.New("not found")

	// ErrCircuitOpen is returned without calling the backend while its breaker is open
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Kind separates transport failures from answers the backend gave on purpose
type Kind int

const (
	// KindNetwork covers connection failures, timeouts, throttling and 5xx answers
	KindNetwork Kind = iota
	// KindApplication covers 4xx answers, undecodable payloads and query errors
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is a failed backend call
type Error struct {
	Backend    string
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s error (status %d): %v", e.Backend, e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s error: %v", e.Backend, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the call may succeed
func (e *Error) Temporary() bool {
	return e.Kind == KindNetwork && !errors.Is(e.Err, ErrCircuitOpen)
}

// NetworkError wraps a transport failure
func NetworkError(backend, op string, err error) *Error {
	return &Error{Backend: backend, Op: op, Kind: KindNetwork, Err: err}
}

// ApplicationError wraps a deliberate backend rejection
func ApplicationError(backend, op string, err error) *Error {
	return &Error{Backend: backend, Op: op, Kind: KindApplication, Err: err}
}

// StatusError classifies an HTTP answer by status code
func StatusError(backend, op string, status int, body string) *Error {
	kind := KindApplication
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		kind = KindNetwork
	}
	var err error
	if status == http.StatusNotFound {
		err = ErrNotFound
	} else {
		err = fmt.Errorf("unexpected response: %s", body)
	}
	return &Error{Backend: backend, Op: op, Kind: kind, StatusCode: status, Err: err}
}

// IsNetwork reports whether err is a transport-level backend failure
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNetwork
}

// IsApplication reports whether err is a deliberate backend rejection
func IsApplication(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindApplication
}
