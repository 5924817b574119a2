package protocol

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher keeps one connection's request and reply streams aligned. It
// owns the FIFO of commands awaiting a reply: Submit appends and writes under
// a single lock so enqueue order always matches write order, and Feed
// completes queue heads as the decoder finishes each reply. Because replies
// carry no correlation id, this ordering is the protocol's core correctness
// invariant.
//
// Submit may be called from any goroutine. Feed and ConnectionClosed are
// expected on the connection's read goroutine, but all three are mutually
// exclusive, so any arrangement is safe.
type Dispatcher struct {
	mu        sync.Mutex
	queue     []*Command
	w         io.Writer
	dec       *Decoder
	closedErr error

	log *zap.Logger
}

func NewDispatcher(w io.Writer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		w:   w,
		dec: NewDecoder(),
		log: log,
	}
}

// Submit appends cmd to the in-flight queue and writes its encoded form to
// the transport. On a closed connection or a write failure the command is
// completed immediately with a connection error, so Get never hangs.
func (d *Dispatcher) Submit(cmd *Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closedErr != nil {
		cmd.Output.SetErr(d.closedErr)
		cmd.Complete()
		return d.closedErr
	}

	d.queue = append(d.queue, cmd)

	if _, err := d.w.Write(cmd.Encode()); err != nil {
		// A partial write desynchronises the stream for every queued
		// command, not just this one.
		d.closeLocked(err)
		return err
	}

	return nil
}

// Feed hands inbound bytes to the decoder and completes the queue head for
// every reply that finishes. Replies for cancelled commands are drained and
// discarded; the pop still happens so later commands stay aligned.
func (d *Dispatcher) Feed(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closedErr != nil {
		return d.closedErr
	}

	replies, decErr := d.dec.Feed(p)

	for _, r := range replies {
		if len(d.queue) == 0 {
			decErr = fmt.Errorf("%w: reply without a pending command", ErrProtocolViolation)
			break
		}

		cmd := d.queue[0]
		d.queue = d.queue[1:]

		if !cmd.Cancelled() {
			cmd.Output.Set(r)
		}

		cmd.Complete()
	}

	if decErr != nil {
		d.log.Error("Stream framing violated, failing connection", zap.Error(decErr))
		d.closeLocked(decErr)
		return decErr
	}

	return nil
}

// ConnectionClosed fails every command still awaiting a reply, in queue
// order, and rejects all future submissions. Safe to call more than once.
func (d *Dispatcher) ConnectionClosed(reason error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeLocked(reason)
}

// Pending returns the number of commands awaiting a reply.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queue)
}

func (d *Dispatcher) closeLocked(reason error) {
	if d.closedErr != nil {
		return
	}

	if reason == nil {
		reason = ErrConnectionClosed
	}

	d.closedErr = &ConnError{Reason: reason}

	if n := len(d.queue); n > 0 {
		d.log.Warn("Failing commands still awaiting replies",
			zap.Int("pending", n),
			zap.Error(reason))
	}

	for _, cmd := range d.queue {
		cmd.Output.SetErr(d.closedErr)
		cmd.Complete()
	}

	d.queue = nil
}
