package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/jord1e/lettuce-core/client"
	"github.com/jord1e/lettuce-core/internal/env"
)

var callTimeout time.Duration

func init() {
	flags := CallCmd.PersistentFlags()

	flags.DurationVar(&callTimeout, "timeout", 5*time.Second, "How long to wait for the reply")
}

var CallCmd = &cobra.Command{
	Use:   "call COMMAND [ARG...]",
	Short: "Send one ad-hoc command and print its reply",
	Long: `Send one ad-hoc command and print its reply

Usage
	lettuce call PING
	lettuce call SET greeting hello
	lettuce call LRANGE mylist 0 -1

The server address is taken from LETTUCE_ADDR.
`,
	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
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

		defer func() {
			if cerr := conn.Close(); cerr != nil {
				log.Warn("Connection did not close cleanly", zap.Error(cerr))
			}
		}()

		var cmdArgs [][]byte
		for _, a := range args[1:] {
			cmdArgs = append(cmdArgs, []byte(a))
		}

		reply, err := conn.Command(ctx, args[0], cmdArgs...)
		if err != nil {
			return err
		}

		out, err := sjson.SetBytes([]byte(`{}`), "reply", printable(reply))
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

// printable rewrites decoded reply values so they render as JSON text rather
// than base64 blobs.
func printable(v interface{}) interface{} {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case []interface{}:
		out := make([]interface{}, 0, len(value))
		for _, e := range value {
			out = append(out, printable(e))
		}
		return out
	default:
		return v
	}
}
