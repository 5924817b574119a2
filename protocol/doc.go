package protocol

// This package implements the transport core of the client: encoding typed
// commands into the RESP wire format, incrementally decoding server replies,
// and keeping the pipelined request and reply streams aligned.
//
// RESP is a request/response protocol. The client writes commands onto a
// single ordered byte stream and the server answers each command with exactly
// one reply, in the order the commands were written. There is no correlation
// id on the wire, so ordering *is* the correlation mechanism.
//
// - `Command`       - One request plus the output it will eventually hold. It
//                     is also the caller's completion handle: Get() blocks
//                     until the reply has been decoded into the output.
// - `CommandArgs`   - The encoded argument buffer for one request. Built once,
//                     never mutated after submission.
// - `Decoder`       - An incremental parser turning inbound bytes into Reply
//                     frames. Resumable at any chunk boundary.
// - `CommandOutput` - The decode target for one command's reply. Each variant
//                     assembles a different result shape (status, value, list,
//                     set, map, cursor, ...).
// - `Dispatcher`    - The per-connection pipeline. Serialises writes, feeds
//                     the decoder, and completes queued commands head-first as
//                     each reply finishes.
//
// === Request framing
//
// A request is an array of bulk strings: the command name followed by its
// arguments.
//
//   ```
//     *<argc>\r\n
//     $<len>\r\n<command-name>\r\n
//     $<len>\r\n<arg>\r\n
//     ...
//   ```
//
// `argc` counts the command name, so it is 1 + the number of arguments. All
// elements are length prefixed, which makes the format binary safe: keys and
// values may contain any byte, including \r\n.
//
// === Reply framing
//
// The first byte of a reply selects its type.
//
//   ```
//     +<text>\r\n            simple status ("+OK\r\n")
//     -<text>\r\n            error, text is the server's message
//     :<number>\r\n          signed 64bit integer
//     $<len>\r\n<bytes>\r\n  bulk value; $-1\r\n is the nil value
//     *<count>\r\n...        array of <count> further replies; *-1\r\n is
//                            the nil array
//   ```
//
// Arrays nest arbitrarily. The decoder resolves the full nesting before
// emitting the outer frame, so consumers only ever see complete replies.
//
// === Error handling
//
// An `-ERR ...` reply is local to the command that caused it: it is stored on
// that command's output and surfaces when the caller reads the result. A
// framing violation (unknown marker byte, inconsistent length) is different -
// once the stream framing can't be trusted every in-flight command is
// desynchronised, so the dispatcher fails all of them and the connection must
// be discarded.
