package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies a provider failure for failover and reporting.
type FailureKind int

const (
	FailureAuth FailureKind = iota
	FailureRateLimited
	FailureServer
	FailureTimeout
	FailureInvalidResponse
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuth:
		return "auth"
	case FailureRateLimited:
		return "rate_limited"
	case FailureServer:
		return "server"
	case FailureTimeout:
		return "timeout"
	case FailureInvalidResponse:
		return "invalid_response"
	}
	return "unknown"
}

// Failure is a classified provider error. Every error returned by a
// provider client is a *Failure, so the orchestrator can always decide
// whether a fallback attempt makes sense.
type Failure struct {
	Kind     FailureKind
	Provider string
	Model    string
	Status   int
	Err      error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (%s): %s %d: %v", f.Provider, f.Model, f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("%s (%s): %s: %v", f.Provider, f.Model, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func classifyStatus(status int) FailureKind {
	switch {
	case status == 429:
		return FailureRateLimited
	case status >= 500:
		return FailureServer
	default:
		// 401/403 and the remaining 4xx are key or request
		// configuration problems.
		return FailureAuth
	}
}

func classifyErr(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureServer
}
