package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// ReplyType identifies the shape of one reply frame. The values are the wire
// marker bytes.
type ReplyType byte

const (
	ReplyStatus  ReplyType = '+'
	ReplyError   ReplyType = '-'
	ReplyInteger ReplyType = ':'
	ReplyBulk    ReplyType = '$'
	ReplyArray   ReplyType = '*'
)

// Reply is one fully decoded reply frame. Arrays carry their children in
// Elems and may nest arbitrarily. Nil marks the nil bulk value ($-1) and the
// nil array (*-1).
type Reply struct {
	Type  ReplyType
	Str   []byte
	Int   int64
	Elems []*Reply
	Nil   bool
}

// IsOK reports whether the reply is the canonical "+OK" status.
func (r *Reply) IsOK() bool {
	return r.Type == ReplyStatus && bytes.Equal(r.Str, statusOK)
}

// arrayFrame tracks one array whose children are still being decoded.
type arrayFrame struct {
	want  int
	elems []*Reply
}

// Decoder incrementally parses an inbound byte stream into Reply frames. It
// is resumable at any chunk boundary: bytes that do not yet form a complete
// frame element are retained until the next Feed. Nested arrays are tracked
// with an explicit stack, so nesting depth is bounded only by memory, not by
// the call stack.
//
// A Decoder is not safe for concurrent use; the Dispatcher serialises access.
type Decoder struct {
	buf   []byte
	stack []arrayFrame
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p to the retained buffer and returns every reply frame that
// became complete, in stream order. A non-nil error means the stream violated
// the framing rules; the decoder is then unusable and the connection must be
// torn down. Frames decoded before the violation are still returned.
func (d *Decoder) Feed(p []byte) ([]*Reply, error) {
	d.buf = append(d.buf, p...)

	var done []*Reply

	for {
		line, rest, ok := cutLine(d.buf)
		if !ok {
			// Mid-header. Wait for more bytes.
			return done, nil
		}

		if len(line) == 0 {
			return done, fmt.Errorf("%w: empty frame header", ErrProtocolViolation)
		}

		var reply *Reply

		marker, body := line[0], line[1:]
		switch marker {
		case '+':
			d.buf = rest
			reply = &Reply{Type: ReplyStatus, Str: copyBytes(body)}

		case '-':
			d.buf = rest
			reply = &Reply{Type: ReplyError, Str: copyBytes(body)}

		case ':':
			n, err := parseInt(body)
			if err != nil {
				return done, err
			}

			d.buf = rest
			reply = &Reply{Type: ReplyInteger, Int: n}

		case '$':
			n, err := parseInt(body)
			if err != nil {
				return done, err
			}

			if n == -1 {
				d.buf = rest
				reply = &Reply{Type: ReplyBulk, Nil: true}
				break
			}

			if n < 0 {
				return done, fmt.Errorf("%w: bulk length %d", ErrProtocolViolation, n)
			}

			if len(rest) < int(n)+2 {
				// Mid-payload. Leave the header in the buffer so the next
				// Feed resumes from the frame boundary.
				return done, nil
			}

			if rest[n] != '\r' || rest[n+1] != '\n' {
				return done, fmt.Errorf("%w: bulk value not terminated", ErrProtocolViolation)
			}

			payload := copyBytes(rest[:n])
			d.buf = rest[n+2:]
			reply = &Reply{Type: ReplyBulk, Str: payload}

		case '*':
			n, err := parseInt(body)
			if err != nil {
				return done, err
			}

			if n == -1 {
				d.buf = rest
				reply = &Reply{Type: ReplyArray, Nil: true}
				break
			}

			if n < 0 {
				return done, fmt.Errorf("%w: array count %d", ErrProtocolViolation, n)
			}

			d.buf = rest

			if n == 0 {
				reply = &Reply{Type: ReplyArray, Elems: []*Reply{}}
				break
			}

			d.stack = append(d.stack, arrayFrame{want: int(n)})
			continue

		default:
			return done, fmt.Errorf("%w: unexpected marker byte %q", ErrProtocolViolation, marker)
		}

		// Attach the finished frame to the innermost open array, unwinding
		// every array it happens to complete.
		for reply != nil && len(d.stack) > 0 {
			top := &d.stack[len(d.stack)-1]
			top.elems = append(top.elems, reply)

			if len(top.elems) < top.want {
				reply = nil
			} else {
				reply = &Reply{Type: ReplyArray, Elems: top.elems}
				d.stack = d.stack[:len(d.stack)-1]
			}
		}

		if reply != nil {
			done = append(done, reply)
		}
	}
}

// cutLine splits off the first \r\n terminated line of buf, excluding the
// terminator.
func cutLine(buf []byte) (line, rest []byte, ok bool) {
	i := bytes.Index(buf, crlf)
	if i < 0 {
		return nil, nil, false
	}

	return buf[:i], buf[i+2:], true
}

func parseInt(body []byte) (int64, error) {
	n, err := strconv.ParseInt(string(body), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad length %q", ErrProtocolViolation, string(body))
	}

	return n, nil
}

// copyBytes detaches p from the decoder's retained buffer, which is reused
// across Feed calls.
func copyBytes(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
