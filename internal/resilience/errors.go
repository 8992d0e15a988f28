package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// ErrSafetyRejection is returned when an inference service declines a request
// on safety grounds. It is never retried.
var ErrSafetyRejection = eris.New("inference: safety rejection")

// StatusCoder is implemented by errors that carry an HTTP status code from a
// remote service. The anthropic and perplexity clients return such errors.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusOf returns the HTTP status code carried anywhere in err's chain, or 0.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// IsRetryable is the default retry classifier. Rate limiting (429) and server
// errors (>=500) are retried, as are network-level transient failures. Safety
// rejections and every other 4xx are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSafetyRejection) {
		return false
	}
	if status := StatusOf(err); status != 0 {
		return status == 429 || status >= 500
	}
	return IsTransient(err)
}

// IsTransient reports whether err looks like a network-level failure that is
// safe to retry: timeouts, connection resets and DNS hiccups.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}
