package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation indicates the inbound stream no longer matches the
	// RESP framing rules. Once framing is broken every in-flight reply is
	// suspect, so this error is fatal to the connection rather than to a
	// single command.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrConnectionClosed is reported when a command is submitted to, or was
	// still queued on, a connection that has been closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrWaitInterrupted is reported when a caller's wait inside Get is cut
	// short by its context, as opposed to the command itself failing.
	ErrWaitInterrupted = errors.New("interrupted while waiting for reply")
)

// ServerError is an error reply sent by the server. The message is carried
// verbatim, e.g. "ERR unknown command".
type ServerError string

func (e ServerError) Error() string {
	return string(e)
}

// ConnError wraps the reason a connection failed. Every command that was
// still awaiting a reply when the connection died receives the same ConnError.
type ConnError struct {
	Reason error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connection failure: %v", e.Reason)
}

func (e *ConnError) Unwrap() error {
	return e.Reason
}
