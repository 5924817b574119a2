package protocol_test

import (
	"bytes"
	"fmt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/jord1e/lettuce-core/protocol"
)

var _ = Describe("Encoding", func() {
	Describe("CommandArgs", func() {
		It("frames a single argument as a bulk string", func() {
			args := protocol.NewArgs().AddString("hello")

			Expect(args.Count()).To(Equal(1))
			Expect(string(args.Bytes())).To(Equal("$5\r\nhello\r\n"))
		})

		It("is binary safe", func() {
			args := protocol.NewArgs().Add([]byte("a\r\nb\x00c"))

			Expect(string(args.Bytes())).To(Equal("$7\r\na\r\nb\x00c\r\n"))
		})

		It("renders integer arguments as decimal text", func() {
			args := protocol.NewArgs().AddInt(0).AddInt(-1).AddInt(42)

			Expect(string(args.Bytes())).To(Equal("$1\r\n0\r\n$2\r\n-1\r\n$2\r\n42\r\n"))
		})

		It("renders length headers with the most significant digit first", func() {
			for _, n := range []int{0, 9, 10, 99, 100} {
				args := protocol.NewArgs().Add(bytes.Repeat([]byte("x"), n))

				expected := fmt.Sprintf("$%d\r\n", n)
				Expect(string(args.Bytes()[:len(expected)])).To(Equal(expected))
			}
		})
	})

	Describe("Command.Encode()", func() {
		It("counts the command name in the array header", func() {
			cmd := protocol.NewCommand(protocol.PING, protocol.NewStatusOutput(), nil)

			Expect(string(cmd.Encode())).To(Equal("*1\r\n$4\r\nPING\r\n"))
		})

		It("appends the pre-encoded argument buffer", func() {
			args := protocol.NewArgs().AddString("greeting").AddString("hi")
			cmd := protocol.NewCommand(protocol.SET, protocol.NewStatusOutput(), args)

			Expect(string(cmd.Encode())).To(
				Equal("*3\r\n$3\r\nSET\r\n$8\r\ngreeting\r\n$2\r\nhi\r\n"))
		})
	})

	Describe("round-trip", func() {
		It("decoding an encoded request recovers every argument byte for byte", func() {
			payloads := [][]byte{
				[]byte(""),
				[]byte("plain"),
				[]byte("with\r\nterminator"),
				[]byte{0x00, 0xff, 0x0d, 0x0a, 0x24},
				bytes.Repeat([]byte("big"), 1000),
			}

			args := protocol.NewArgs()
			for _, p := range payloads {
				args.Add(p)
			}

			cmd := protocol.NewCommand(protocol.ECHO, protocol.NewValueOutput(), args)

			dec := protocol.NewDecoder()
			replies, err := dec.Feed(cmd.Encode())
			Expect(err).To(Succeed())
			Expect(replies).To(HaveLen(1))

			frame := replies[0]
			Expect(frame.Type).To(Equal(protocol.ReplyArray))
			Expect(frame.Elems).To(HaveLen(1 + len(payloads)))
			Expect(frame.Elems[0].Str).To(Equal([]byte("ECHO")))

			for i, p := range payloads {
				Expect(frame.Elems[i+1].Str).To(Equal(p))
			}
		})
	})
})
