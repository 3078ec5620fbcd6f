package cmd

import (
	"fmt"
	"net/http"

	"github.com/coursechat/coursechat/pkg/config"
	"github.com/coursechat/coursechat/pkg/gateway"
	"github.com/coursechat/coursechat/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API gateway",
	Long: `Serve a gateway that rewrites /api/ requests to the backend, preserving
cookies and auth tokens, and exposes loader endpoints for pages.`,
	RunE: runServe,
}

func init() {
	// Backend host and protocol can come from a .env file in deployments
	_ = godotenv.Load()

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	settings := config.Get()

	server, err := gateway.New(gateway.Config{
		BackendURL: settings.Backend.URL,
		LoginPath:  settings.Gateway.LoginPath,
		Metrics:    settings.Gateway.Metrics,
	}, newAPIClient())
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	logger.Info("gateway listening on %s, backend %s", settings.Gateway.Listen, settings.Backend.URL)
	fmt.Printf("Gateway listening on %s\n", settings.Gateway.Listen)
	return http.ListenAndServe(settings.Gateway.Listen, server.Handler())
}
