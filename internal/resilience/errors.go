// Package resilience classifies transient failures from remote data and
// geocoding sources and retries them with exponential backoff.
package resilience

import (
	"errors"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"syscall"
	"time"
)

// TransientError marks a failure worth another attempt. StatusCode is the
// HTTP or FTP reply code when there was one. RetryAfter is the server's
// requested wait, zero when it gave none.
type TransientError struct {
	Err        error
	StatusCode int
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError marks err as retryable.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// Messages seen from net/http and jlaffaye/ftp when the failure sits below
// any typed error.
var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

func retryAfter(err error) time.Duration {
	if te := (*TransientError)(nil); errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// IsTransient reports whether err is worth retrying. It looks for a
// TransientError, a timeout, a dropped TCP connection, a 4xx FTP reply, or a
// known transient message anywhere in the chain.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if te := (*TransientError)(nil); errors.As(err, &te) {
		return true
	}
	if ne := net.Error(nil); errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if errors.Is(err, errno) {
			return true
		}
	}
	if pe := (*textproto.Error)(nil); errors.As(err, &pe) {
		return IsTransientFTPCode(pe.Code)
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP response status is retryable.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransientFTPCode reports whether an FTP reply code is a transient
// negative completion (4xx), such as 421 service closing or 426 transfer
// aborted. 5xx replies are permanent.
func IsTransientFTPCode(code int) bool {
	return code >= 400 && code < 500
}
