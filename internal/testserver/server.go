// Package testserver is a miniature RESP server backed by a JSON document
// store. It exists so the client can be exercised end-to-end in tests and
// demos without a real server; it implements just enough of the command set
// to cover every reply shape the client decodes.
package testserver

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jord1e/lettuce-core/protocol"
)

type Server struct {
	ctx    context.Context
	cancel context.CancelFunc

	listener net.Listener
	store    *Store

	mu          sync.Mutex
	activeConns map[net.Conn]struct{}

	loopWaiter sync.WaitGroup

	log *zap.Logger
}

func New(log *zap.Logger) *Server {
	return &Server{
		store:       NewStore(),
		activeConns: make(map[net.Conn]struct{}),
		log:         log,
	}
}

// Start listens on addr and begins accepting connections. Use ":0" to pick a
// free port and Addr to discover it.
func (s *Server) Start(parentCtx context.Context, addr string) error {
	s.ctx, s.cancel = context.WithCancel(parentCtx)

	listener, err := reuseport.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.log.Info("Test server listening", zap.String("addr", listener.Addr().String()))

	s.loopWaiter.Add(1)
	go func() {
		defer s.loopWaiter.Done()
		s.acceptLoop()
	}()

	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops the listener and every active connection.
func (s *Server) Close() (err error) {
	s.cancel()

	if cerr := s.listener.Close(); cerr != nil {
		err = multierr.Append(err, cerr)
	}

	s.mu.Lock()
	for conn := range s.activeConns {
		if cerr := conn.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
		delete(s.activeConns, conn)
	}
	s.mu.Unlock()

	s.loopWaiter.Wait()
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}

			netOpError := new(net.OpError)
			if errors.As(err, &netOpError) {
				// The listener was closed while we were accepting.
				return
			}

			s.log.Warn("Accept failed", zap.Error(err))
			return
		}

		s.addConn(conn)

		s.loopWaiter.Add(1)
		go func() {
			defer s.loopWaiter.Done()
			defer s.removeConn(conn)
			s.serveConn(conn)
		}()
	}
}

// serveConn parses inbound request arrays with the same incremental decoder
// the client uses, and answers each one in order.
func (s *Server) serveConn(conn net.Conn) {
	log := s.log.Named("conn").With(zap.String("remote", conn.RemoteAddr().String()))

	dec := protocol.NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)

		if n > 0 {
			requests, decErr := dec.Feed(buf[:n])

			for _, req := range requests {
				reply := s.handle(req)

				if _, werr := conn.Write(reply); werr != nil {
					log.Warn("Write failed", zap.Error(werr))
					conn.Close()
					return
				}
			}

			if decErr != nil {
				log.Warn("Malformed request stream", zap.Error(decErr))
				conn.Close()
				return
			}
		}

		if err != nil {
			conn.Close()
			return
		}
	}
}

func (s *Server) handle(req *protocol.Reply) []byte {
	if req.Type != protocol.ReplyArray || len(req.Elems) == 0 {
		return respError("ERR malformed request")
	}

	args := make([][]byte, 0, len(req.Elems))
	for _, e := range req.Elems {
		args = append(args, e.Str)
	}

	name := string(bytes.ToUpper(args[0]))
	args = args[1:]

	switch protocol.CommandType(name) {
	case protocol.PING:
		return respStatus("PONG")

	case protocol.QUIT:
		return respStatus("OK")

	case protocol.ECHO:
		if len(args) != 1 {
			return wrongArity(name)
		}
		return respBulk(args[0])

	case protocol.SET:
		if len(args) != 2 {
			return wrongArity(name)
		}
		if err := s.store.Set(string(args[0]), args[1]); err != nil {
			return respError("ERR " + err.Error())
		}
		return respStatus("OK")

	case protocol.GET:
		if len(args) != 1 {
			return wrongArity(name)
		}
		value, ok := s.store.Get(string(args[0]))
		if !ok {
			return respNil()
		}
		return respBulk(value)

	case protocol.DEL:
		if len(args) == 0 {
			return wrongArity(name)
		}
		keys := make([]string, 0, len(args))
		for _, a := range args {
			keys = append(keys, string(a))
		}
		return respInt(s.store.Del(keys...))

	case protocol.EXISTS:
		if len(args) != 1 {
			return wrongArity(name)
		}
		if s.store.Exists(string(args[0])) {
			return respInt(1)
		}
		return respInt(0)

	case protocol.INCR:
		if len(args) != 1 {
			return wrongArity(name)
		}
		n, err := s.store.Incr(string(args[0]))
		if err != nil {
			return respError("ERR value is not an integer or out of range")
		}
		return respInt(n)

	case protocol.RPUSH:
		if len(args) < 2 {
			return wrongArity(name)
		}
		n, err := s.store.RPush(string(args[0]), args[1:]...)
		if err != nil {
			return respError("ERR " + err.Error())
		}
		return respInt(n)

	case protocol.LRANGE:
		if len(args) != 3 {
			return wrongArity(name)
		}
		start, serr := strconv.ParseInt(string(args[1]), 10, 64)
		stop, perr := strconv.ParseInt(string(args[2]), 10, 64)
		if serr != nil || perr != nil {
			return respError("ERR value is not an integer or out of range")
		}
		return respArray(s.store.LRange(string(args[0]), start, stop))

	case protocol.SADD:
		if len(args) < 2 {
			return wrongArity(name)
		}
		n, err := s.store.SAdd(string(args[0]), args[1:]...)
		if err != nil {
			return respError("ERR " + err.Error())
		}
		return respInt(n)

	case protocol.SMEMBERS:
		if len(args) != 1 {
			return wrongArity(name)
		}
		return respArray(s.store.SMembers(string(args[0])))

	case protocol.HSET:
		if len(args) != 3 {
			return wrongArity(name)
		}
		n, err := s.store.HSet(string(args[0]), string(args[1]), args[2])
		if err != nil {
			return respError("ERR " + err.Error())
		}
		return respInt(n)

	case protocol.HGETALL:
		if len(args) != 1 {
			return wrongArity(name)
		}
		return respArray(s.store.HGetAll(string(args[0])))

	case protocol.SCAN:
		if len(args) != 1 {
			return wrongArity(name)
		}
		// The dataset is small enough to return in one page, so the
		// continuation cursor is always "0".
		var out bytes.Buffer
		out.WriteString("*2\r\n")
		out.Write(respBulk([]byte("0")))
		out.Write(respArray(s.store.Keys()))
		return out.Bytes()

	default:
		return respError("ERR unknown command '" + name + "'")
	}
}

func wrongArity(name string) []byte {
	return respError("ERR wrong number of arguments for '" + name + "' command")
}

func respStatus(s string) []byte {
	return []byte("+" + s + "\r\n")
}

func respError(msg string) []byte {
	return []byte("-" + msg + "\r\n")
}

func respInt(n int64) []byte {
	return []byte(":" + strconv.FormatInt(n, 10) + "\r\n")
}

func respNil() []byte {
	return []byte("$-1\r\n")
}

func respBulk(p []byte) []byte {
	var out bytes.Buffer
	out.WriteByte('$')
	out.WriteString(strconv.Itoa(len(p)))
	out.WriteString("\r\n")
	out.Write(p)
	out.WriteString("\r\n")
	return out.Bytes()
}

func respArray(elems [][]byte) []byte {
	var out bytes.Buffer
	out.WriteByte('*')
	out.WriteString(strconv.Itoa(len(elems)))
	out.WriteString("\r\n")
	for _, e := range elems {
		out.Write(respBulk(e))
	}
	return out.Bytes()
}

func (s *Server) addConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeConns[conn] = struct{}{}
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.activeConns, conn)
}
