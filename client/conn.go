package client

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jord1e/lettuce-core/protocol"
)

// Conn is a single pipelined client connection. Commands submitted from any
// goroutine are written in submission order and matched to replies by that
// same order; any number of commands may be in flight at once.
//
// Conn does not reconnect. Once the transport fails, every pending command is
// failed and the Conn must be replaced. Reconnection and pooling policy
// belong to the caller.
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn       net.Conn
	dispatcher *protocol.Dispatcher

	log *zap.Logger
}

func New(log *zap.Logger) *Conn {
	return &Conn{
		log: log,
	}
}

// Connect dials addr and starts the read loop. The context bounds the dial
// and, when cancelled later, stops the read loop.
func (c *Conn) Connect(ctx context.Context, addr string) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	c.conn = conn
	c.dispatcher = protocol.NewDispatcher(conn, c.log.Named("dispatcher"))

	go c.readLoop()

	return nil
}

// Close tears down the connection. Every command still awaiting a reply is
// completed with a connection error, in submission order.
func (c *Conn) Close() (err error) {
	c.cancel()

	if cerr := c.conn.Close(); cerr != nil {
		err = multierr.Append(err, cerr)
	}

	c.dispatcher.ConnectionClosed(protocol.ErrConnectionClosed)

	return err
}

// Do submits a prebuilt command and returns it as the completion handle.
func (c *Conn) Do(cmd *protocol.Command) (*protocol.Command, error) {
	if err := c.dispatcher.Submit(cmd); err != nil {
		return nil, err
	}

	return cmd, nil
}

// Pending returns the number of commands awaiting replies.
func (c *Conn) Pending() int {
	return c.dispatcher.Pending()
}

func (c *Conn) readLoop() {
	log := c.log.Named("readLoop")

	buf := make([]byte, 4096)

	for {
		n, err := c.conn.Read(buf)

		if n > 0 {
			if ferr := c.dispatcher.Feed(buf[:n]); ferr != nil {
				// The dispatcher has already failed every pending command;
				// all that's left is dropping the transport.
				log.Warn("Closing connection", zap.Error(ferr))
				c.conn.Close()
				return
			}
		}

		if err != nil {
			if c.ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.Info("Read loop exiting", zap.Error(err))
			} else {
				log.Warn("Transport read failed", zap.Error(err))
			}

			c.dispatcher.ConnectionClosed(err)
			return
		}
	}
}
