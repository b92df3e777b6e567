// http-eval serves a persistent JavaScript execution context (or a Starlark or Risor one)
// over a Unix domain socket.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "http-eval",
	Short: "Evaluate code posted to a Unix domain socket in a persistent context.",
	Long: `http-eval binds the Unix domain socket named by HTTP_EVAL_UDS_PATH and
evaluates the code in each POST /run request against one shared execution
context. Anyone who can write to the socket can run code as this process.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
