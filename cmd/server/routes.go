package main

import (
	"fmt"

	"apigw-local/internal/config"
	"apigw-local/internal/gateway"
	"apigw-local/pkg/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table and exit",
		Long:  "Print the route table and exit. Exits non-zero when a declared route cannot be mounted.",
		RunE:  runRoutes,
	}
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	cfg.Journal.Path = ""
	cfg.Metrics.Enabled = false

	gin.SetMode(gin.ReleaseMode)
	container, err := server.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	out := cmd.OutOrStdout()
	for _, route := range container.Router.Routes() {
		line := fmt.Sprintf("%s %s via λ %s", gateway.PadMethod(route.Method), route.GatewayPath, route.FunctionName)
		if route.Authorizer != nil {
			line += fmt.Sprintf(" (authorizer λ %s)", route.Authorizer.Name)
		}
		fmt.Fprintln(out, line)
	}

	return container.BuildErrors()
}
