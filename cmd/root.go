package cmd

import (
	"fmt"
	"os"

	"github.com/coursechat/coursechat/pkg/api"
	"github.com/coursechat/coursechat/pkg/config"
	"github.com/coursechat/coursechat/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "coursechat",
	Short: "Client for the coursechat tutoring platform",
	Long:  `Talk to class assistants, browse threads, and run the local API gateway.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .coursechat/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("backend", "", "backend base URL")
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend"))
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

// newAPIClient builds an API client from the loaded config
func newAPIClient() *api.Client {
	settings := config.Get()

	client := api.NewClientWithTimeout(settings.Backend.URL, settings.Backend.Timeout).
		WithRetryPolicy(settings.Retry.Max, settings.Retry.Backoff)

	if settings.Backend.ShareToken != "" {
		client = client.WithShareToken(settings.Backend.ShareToken)
	}
	if settings.Backend.SessionToken != "" {
		client = client.WithSessionToken(settings.Backend.SessionToken)
	}
	if settings.RateLimit.Enabled {
		client = client.WithRateLimit(settings.RateLimit.RPS, settings.RateLimit.Burst)
	}

	return client
}
