package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

// httpErr stands in for a client error carrying a response status.
type httpErr struct {
	err  error
	code int
}

func (e *httpErr) Error() string   { return e.err.Error() }
func (e *httpErr) Unwrap() error   { return e.err }
func (e *httpErr) HTTPStatus() int { return e.code }

func statusError(err error, code int) error { return &httpErr{err: err, code: code} }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", statusError(errors.New("rate"), 429), true},
		{"500", statusError(errors.New("boom"), 500), true},
		{"529 overloaded", statusError(errors.New("overloaded"), 529), true},
		{"400", statusError(errors.New("bad"), 400), false},
		{"404", statusError(errors.New("missing"), 404), false},
		{"wrapped 503", eris.Wrap(statusError(errors.New("down"), 503), "call"), true},
		{"safety", ErrSafetyRejection, false},
		{"wrapped safety", fmt.Errorf("stage: %w", ErrSafetyRejection), false},
		{"timeout", timeoutErr{}, true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"plain", errors.New("schema mismatch"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsTransient_Patterns(t *testing.T) {
	assert.True(t, IsTransient(errors.New("write tcp: broken pipe")))
	assert.True(t, IsTransient(errors.New("net/http: TLS handshake timeout")))
	assert.False(t, IsTransient(errors.New("invalid api key")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 0, StatusOf(errors.New("x")))
	assert.Equal(t, 502, StatusOf(eris.Wrap(statusError(errors.New("x"), 502), "y")))
}
