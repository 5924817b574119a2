package protocol

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// CommandType is the wire name of a command.
type CommandType string

const (
	PING     CommandType = "PING"
	ECHO     CommandType = "ECHO"
	GET      CommandType = "GET"
	SET      CommandType = "SET"
	DEL      CommandType = "DEL"
	EXISTS   CommandType = "EXISTS"
	INCR     CommandType = "INCR"
	LPUSH    CommandType = "LPUSH"
	RPUSH    CommandType = "RPUSH"
	LRANGE   CommandType = "LRANGE"
	SADD     CommandType = "SADD"
	SMEMBERS CommandType = "SMEMBERS"
	HSET     CommandType = "HSET"
	HGETALL  CommandType = "HGETALL"
	SCAN     CommandType = "SCAN"
	QUIT     CommandType = "QUIT"
)

const (
	statePending int32 = iota
	stateCompleted
	stateCancelled
)

// Command couples one request with the output its reply will be decoded
// into. It doubles as the caller's completion handle: the dispatcher owns the
// command while it is in flight, and once Complete fires ownership transfers
// to whoever holds the handle.
//
// Exactly one completion event ever fires, whether through Complete or
// Cancel.
type Command struct {
	Type   CommandType
	Args   *CommandArgs
	Output CommandOutput

	state int32
	once  sync.Once
	done  chan struct{}
}

func NewCommand(t CommandType, output CommandOutput, args *CommandArgs) *Command {
	return &Command{
		Type:   t,
		Args:   args,
		Output: output,
		done:   make(chan struct{}),
	}
}

// Complete marks the command finished and releases every blocked waiter. The
// dispatcher calls this exactly once, after the output has consumed the full
// reply. A second call is a no-op.
func (c *Command) Complete() {
	c.once.Do(func() {
		atomic.StoreInt32(&c.state, stateCompleted)
		close(c.done)
	})
}

// Cancel gives up on the command. It succeeds only while the command is
// still pending, and it does not retract the request already on the wire:
// the server will still execute it and the dispatcher will still drain its
// reply from the stream, unattributed.
func (c *Command) Cancel() bool {
	cancelled := false
	c.once.Do(func() {
		atomic.StoreInt32(&c.state, stateCancelled)
		close(c.done)
		cancelled = true
	})
	return cancelled
}

// Done reports whether the command reached a terminal state.
func (c *Command) Done() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Cancelled reports whether the command was cancelled.
func (c *Command) Cancelled() bool {
	return atomic.LoadInt32(&c.state) == stateCancelled
}

// Get blocks until the command completes, then returns the decoded result or
// the error stored on the output (a server error reply, or a connection
// failure). A cancelled command yields a nil result and no error; use
// Cancelled to tell that apart from a nil reply.
//
// If ctx is done before the command completes, Get returns
// ErrWaitInterrupted. The command stays pending and a later Get will observe
// its eventual completion.
func (c *Command) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-c.done:
		return c.result()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrWaitInterrupted, ctx.Err())
	}
}

// GetTimeout waits up to timeout for the result. On timeout it returns a nil
// result and no error, leaving the command pending; a later Get still
// observes the eventual completion.
func (c *Command) GetTimeout(timeout time.Duration) (interface{}, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-c.done:
		return c.result()
	case <-t.C:
		return nil, nil
	}
}

func (c *Command) result() (interface{}, error) {
	if c.Cancelled() {
		return nil, nil
	}

	return c.Output.Get()
}

// Encode renders the full request frame: array header, command name, then
// the pre-encoded argument buffer.
func (c *Command) Encode() []byte {
	argc := 1
	if c.Args != nil {
		argc += c.Args.Count()
	}

	var buf bytes.Buffer
	buf.WriteByte('*')
	buf.Write(strconv.AppendInt(nil, int64(argc), 10))
	buf.Write(crlf)
	writeBulk(&buf, []byte(c.Type))

	if c.Args != nil {
		buf.Write(c.Args.Bytes())
	}

	return buf.Bytes()
}
