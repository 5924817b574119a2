package protocol

import (
	"bytes"
	"strconv"
)

var crlf = []byte("\r\n")

// CommandArgs accumulates the encoded arguments for one request. Each value
// added is framed as a bulk string immediately, so the buffer is wire-ready
// by the time the command is submitted. Arguments are binary safe.
//
// CommandArgs must not be modified after the command has been submitted.
type CommandArgs struct {
	buf   bytes.Buffer
	count int
}

func NewArgs() *CommandArgs {
	return &CommandArgs{}
}

// Add appends one binary-safe argument.
func (a *CommandArgs) Add(arg []byte) *CommandArgs {
	writeBulk(&a.buf, arg)
	a.count++
	return a
}

// AddString appends one argument given as a string.
func (a *CommandArgs) AddString(arg string) *CommandArgs {
	return a.Add([]byte(arg))
}

// AddInt appends an integer argument rendered as decimal text, which is how
// RESP transmits all numbers.
func (a *CommandArgs) AddInt(v int64) *CommandArgs {
	return a.Add(strconv.AppendInt(nil, v, 10))
}

// AddStrings appends every element of keys in order.
func (a *CommandArgs) AddStrings(keys ...string) *CommandArgs {
	for _, k := range keys {
		a.AddString(k)
	}
	return a
}

// Count returns the number of arguments added so far.
func (a *CommandArgs) Count() int {
	return a.count
}

// Bytes returns the encoded argument buffer. The returned slice aliases the
// internal buffer and is only valid until the next Add.
func (a *CommandArgs) Bytes() []byte {
	return a.buf.Bytes()
}

// writeBulk frames p as `$<len>\r\n<p>\r\n`. The length is rendered most
// significant digit first; zero renders as "0".
func writeBulk(buf *bytes.Buffer, p []byte) {
	buf.WriteByte('$')
	buf.Write(strconv.AppendInt(nil, int64(len(p)), 10))
	buf.Write(crlf)
	buf.Write(p)
	buf.Write(crlf)
}
