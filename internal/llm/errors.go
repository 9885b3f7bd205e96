package llm

import (
	"errors"
	"fmt"
)

// The two failure kinds are deliberately distinct: a communication failure is
// plausibly transient and worth retrying on a future run, a protocol failure
// means the backend returned something this version does not understand and
// retrying will not help.
var (
	ErrCommunication = errors.New("llm: communication error")
	ErrProtocol      = errors.New("llm: protocol error")
)

// CommunicationError wraps transport-level failures: connection refused,
// timeouts, non-success status codes.
type CommunicationError struct {
	Backend string
	Cause   error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("llm: %s request failed: %v", e.Backend, e.Cause)
}

func (e *CommunicationError) Unwrap() error { return e.Cause }

// Is lets callers match with errors.Is(err, ErrCommunication).
func (e *CommunicationError) Is(target error) bool { return target == ErrCommunication }

// ProtocolError reports a reachable backend whose response did not carry the
// expected generated-text field. RawBody keeps the response for diagnostics.
type ProtocolError struct {
	Backend string
	Reason  string
	RawBody string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("llm: %s returned unexpected response: %s", e.Backend, e.Reason)
}

// Is lets callers match with errors.Is(err, ErrProtocol).
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }
