package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jord1e/lettuce-core/client"
	"github.com/jord1e/lettuce-core/internal/env"
	"github.com/jord1e/lettuce-core/protocol"
)

var (
	benchRequests int
	benchDepth    int
	benchHTTPPort string
)

func init() {
	flags := BenchCmd.PersistentFlags()

	flags.IntVarP(&benchRequests, "requests", "n", 10000, "Total number of commands to send")
	flags.IntVarP(&benchDepth, "pipeline", "P", 64, "How many commands to keep in flight")
	flags.StringVar(&benchHTTPPort, "http-port", "7362", "The port to serve live stats on")
}

var BenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure pipelined SET throughput",
	Long: `Measure pipelined SET throughput

Keeps --pipeline commands in flight on a single connection and reports
how long --requests of them take. While running, live counters are
served over HTTP on --http-port at /stats.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		conn := client.New(log.Named("client"))
		if err := conn.Connect(ctx, conf.Addr); err != nil {
			return err
		}
		defer conn.Close()

		var completed int64

		router := setupRouter(conf.DebugHTTP, log)
		router.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"requests":  benchRequests,
				"completed": atomic.LoadInt64(&completed),
				"pending":   conn.Pending(),
			})
		})

		s := &http.Server{
			Addr:    net.JoinHostPort("0.0.0.0", benchHTTPPort),
			Handler: router,
		}

		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Stats server errored", zap.Error(err))
			}
		}()
		defer s.Close()

		value := []byte("benchmark-payload")
		window := make([]*protocol.Command, 0, benchDepth)
		started := time.Now()

		for i := 0; i < benchRequests; i++ {
			args := protocol.NewArgs().AddString("bench:key").Add(value)
			c := protocol.NewCommand(protocol.SET, protocol.NewStatusOutput(), args)

			if _, err := conn.Do(c); err != nil {
				return err
			}

			window = append(window, c)

			if len(window) == benchDepth {
				if err := drain(ctx, window, &completed); err != nil {
					return err
				}
				window = window[:0]
			}
		}

		if err := drain(ctx, window, &completed); err != nil {
			return err
		}

		elapsed := time.Since(started)
		fmt.Printf("%d commands in %s (%.0f ops/sec, pipeline depth %d)\n",
			benchRequests, elapsed,
			float64(benchRequests)/elapsed.Seconds(), benchDepth)

		return nil
	},
}

func drain(ctx context.Context, window []*protocol.Command, completed *int64) error {
	for _, c := range window {
		if _, err := c.Get(ctx); err != nil {
			return err
		}

		atomic.AddInt64(completed, 1)
	}

	return nil
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, to stdout in
	// RFC3339 UTC.
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))

	// Logs all panics to the error log, with stacks.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
