package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jord1e/lettuce-core/cmd/gen"
)

var rootCmd = &cobra.Command{
	Use:   "lettuce",
	Short: "A pipelined RESP client",
	Long: `A pipelined RESP client

lettuce speaks the RESP wire protocol over a single pipelined connection.
Use 'call' for ad-hoc commands, 'bench' to measure pipelined throughput,
and 'serve' to run the bundled test server.
`,
}

func init() {
	rootCmd.AddCommand(CallCmd)
	rootCmd.AddCommand(BenchCmd)
	rootCmd.AddCommand(ServeCmd)
	rootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
