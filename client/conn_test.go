package client_test

import (
	"context"
	"errors"
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/jord1e/lettuce-core/client"
	"github.com/jord1e/lettuce-core/internal/testserver"
	"github.com/jord1e/lettuce-core/protocol"
)

var _ = Describe("Conn", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		server *testserver.Server
		conn   *client.Conn
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())

		server = testserver.New(zap.NewNop())
		Expect(server.Start(ctx, "127.0.0.1:0")).To(Succeed())

		conn = client.New(zap.NewNop())
		Expect(conn.Connect(ctx, server.Addr())).To(Succeed())
	})

	AfterEach(func() {
		conn.Close()
		Expect(server.Close()).To(Succeed())
		cancel()
	})

	It("pings", func() {
		Expect(conn.Ping(ctx)).To(Equal("PONG"))
	})

	It("echoes binary-safe payloads", func() {
		payload := []byte("bin\r\n\x00ary")

		Expect(conn.Echo(ctx, payload)).To(Equal(payload))
	})

	It("sets and gets a key", func() {
		status, err := conn.Set(ctx, "greeting", []byte("hello"))
		Expect(err).To(Succeed())
		Expect(status).To(Equal(protocol.StatusOK))

		Expect(conn.Get(ctx, "greeting")).To(Equal([]byte("hello")))
	})

	It("returns nil for a missing key", func() {
		value, err := conn.Get(ctx, "missing")
		Expect(err).To(Succeed())
		Expect(value).To(BeNil())
	})

	It("deletes keys and reports existence", func() {
		_, err := conn.Set(ctx, "doomed", []byte("x"))
		Expect(err).To(Succeed())

		Expect(conn.Exists(ctx, "doomed")).To(BeTrue())
		Expect(conn.Del(ctx, "doomed", "never-there")).To(Equal(int64(1)))
		Expect(conn.Exists(ctx, "doomed")).To(BeFalse())
	})

	It("increments counters", func() {
		Expect(conn.Incr(ctx, "counter")).To(Equal(int64(1)))
		Expect(conn.Incr(ctx, "counter")).To(Equal(int64(2)))
	})

	It("pushes to and ranges over lists", func() {
		n, err := conn.RPush(ctx, "mylist", []byte("a"), []byte("b"), []byte("c"))
		Expect(err).To(Succeed())
		Expect(n).To(Equal(int64(3)))

		Expect(conn.LRange(ctx, "mylist", 0, -1)).To(Equal([][]byte{
			[]byte("a"), []byte("b"), []byte("c"),
		}))
	})

	It("adds to and reads sets", func() {
		n, err := conn.SAdd(ctx, "myset", []byte("a"), []byte("b"), []byte("a"))
		Expect(err).To(Succeed())
		Expect(n).To(Equal(int64(2)))

		Expect(conn.SMembers(ctx, "myset")).To(Equal(map[string]struct{}{
			"a": {},
			"b": {},
		}))
	})

	It("writes and reads hashes", func() {
		Expect(conn.HSet(ctx, "myhash", "field", []byte("value"))).To(Equal(int64(1)))
		Expect(conn.HSet(ctx, "myhash", "field", []byte("value2"))).To(Equal(int64(0)))

		Expect(conn.HGetAll(ctx, "myhash")).To(Equal(map[string][]byte{
			"field": []byte("value2"),
		}))
	})

	It("scans keys with a cursor", func() {
		_, err := conn.Set(ctx, "k1", []byte("v"))
		Expect(err).To(Succeed())
		_, err = conn.Set(ctx, "k2", []byte("v"))
		Expect(err).To(Succeed())

		result, err := conn.Scan(ctx, "0")
		Expect(err).To(Succeed())
		Expect(result.Cursor).To(Equal("0"))
		Expect(result.Keys).To(ContainElement([]byte("k1")))
		Expect(result.Keys).To(ContainElement([]byte("k2")))
	})

	It("surfaces server errors on the offending command only", func() {
		_, err := conn.Command(ctx, "GET")

		serverErr := protocol.ServerError("")
		Expect(errors.As(err, &serverErr)).To(BeTrue())
		Expect(string(serverErr)).To(ContainSubstring("wrong number of arguments"))

		// The connection is still healthy.
		Expect(conn.Ping(ctx)).To(Equal("PONG"))
	})

	It("keeps replies aligned across a pipelined burst", func() {
		handles := make([]*protocol.Command, 0, 50)

		for i := 0; i < 50; i++ {
			args := protocol.NewArgs().Add([]byte{byte(i)})
			cmd := protocol.NewCommand(protocol.ECHO, protocol.NewValueOutput(), args)

			_, err := conn.Do(cmd)
			Expect(err).To(Succeed())
			handles = append(handles, cmd)
		}

		for i, cmd := range handles {
			v, err := cmd.Get(ctx)
			Expect(err).To(Succeed())
			Expect(v).To(Equal([]byte{byte(i)}))
		}
	})

	It("runs ad-hoc commands with nested reply shapes", func() {
		_, err := conn.Set(ctx, "adhoc", []byte("v"))
		Expect(err).To(Succeed())

		v, err := conn.Command(ctx, "SCAN", []byte("0"))
		Expect(err).To(Succeed())

		page, ok := v.([]interface{})
		Expect(ok).To(BeTrue())
		Expect(page).To(HaveLen(2))
		Expect(page[0]).To(Equal([]byte("0")))
	})

})

var _ = Describe("Conn against an unresponsive server", func() {
	It("fails pending commands when the connection drops", func() {
		// A listener that accepts but never replies, so the command is
		// guaranteed to still be pending when the connection closes.
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(Succeed())
		defer listener.Close()

		go func() {
			c, aerr := listener.Accept()
			if aerr != nil {
				return
			}
			defer c.Close()

			buf := make([]byte, 1024)
			for {
				if _, rerr := c.Read(buf); rerr != nil {
					return
				}
			}
		}()

		conn := client.New(zap.NewNop())
		Expect(conn.Connect(context.Background(), listener.Addr().String())).To(Succeed())

		cmd := protocol.NewCommand(protocol.PING, protocol.NewStatusOutput(), nil)
		_, err = conn.Do(cmd)
		Expect(err).To(Succeed())

		conn.Close()

		Eventually(cmd.Done).Should(BeTrue())

		_, err = cmd.Get(context.Background())
		connErr := new(protocol.ConnError)
		Expect(errors.As(err, &connErr)).To(BeTrue())
	})
})
