package main

import (
	"fmt"
	"os"

	"apigw-local/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "apigw-local",
	Short: "Serve serverless.yml http events locally",
	Long: `apigw-local emulates an API Gateway Lambda proxy integration on your
machine. Every http event declared in serverless.yml becomes a route whose
requests are turned into proxy events and handed to the function's handler.

Environment variables override settings with the APIGW_LOCAL_ prefix.
Example: APIGW_LOCAL_PORT=4000`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "serverless.yml", "service description, relative to the service path")
	flags.String("service-path", "", "root for handler paths (default: working directory)")
	flags.String("stage", "", "override provider.stage")
	flags.String("region", "", "override provider.region")
	flags.String("loader", config.LoaderExec, "how handler units are run")
	flags.Bool("offline", true, "export IS_OFFLINE=true to handlers")
	flags.String("failure-policy", "result-wins", "result-wins or failure-wins")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "text or json")

	rootCmd.AddCommand(newServeCmd(), newRoutesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
