package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jord1e/lettuce-core/internal/env"
	"github.com/jord1e/lettuce-core/internal/testserver"
)

var (
	serveHost string
	servePort int
)

func init() {
	flags := ServeCmd.PersistentFlags()

	flags.IntVarP(&servePort, "port", "p", 6379, "The port to listen for client connections on")
	flags.StringVarP(&serveHost, "host", "a", "0.0.0.0", "The host to listen on")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bundled test server",
	Long: `Run the bundled test server

The test server speaks enough of the protocol to exercise every reply
shape the client decodes. It keeps its dataset in memory and is meant
for development and demos, not production.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		server := testserver.New(log.Named("testserver"))

		addr := net.JoinHostPort(serveHost, strconv.Itoa(servePort))
		if err := server.Start(ctx, addr); err != nil {
			return err
		}

		log.Info("Listening", zap.String("addr", server.Addr()))

		<-ctx.Done()
		signalStop()
		log.Info("Shutting down")

		if err := server.Close(); err != nil {
			log.Error("Test server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}
