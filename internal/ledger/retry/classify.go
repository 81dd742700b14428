package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// temporary is implemented by errors that know whether a retry can help,
// such as the ledger backend errors
type temporary interface {
	Temporary() bool
}

// transientMessages are matched against errors that carry no type information
var transientMessages = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"timeout",
	"timed out",
	"temporary failure",
	"network is unreachable",
	"no such host",
	"eof",
}

// isRecoverableError reports whether err is worth another attempt.
// Cancellation never retries.
func isRecoverableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
