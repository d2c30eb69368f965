package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the evaluation backend is up",
	Run: func(cmd *cobra.Command, _ []string) {
		ping(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func ping(cmd *cobra.Command) {
	logger, config := bootstrap()

	client := newClient(config, logger)

	if err := client.Ping(context.Background()); err != nil {
		msg, fields := describeError(err)
		logger.Fatal("Backend is down. "+msg, fields...)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Backend is up: %s\n", config.Backend.URL)
}
