package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tropicly/labeler/internal/api"
	"github.com/tropicly/labeler/internal/config"
)

var pushServer string

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Load a sample CSV into a running labeler",
	Args:  cobra.ExactArgs(1),
	RunE:  runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushServer, "server", "", "Base URL of the labeler (default http://<server.address>)")
}

func runPush(cmd *cobra.Command, args []string) error {
	baseURL := pushServer
	if baseURL == "" {
		baseURL = "http://" + config.GetServerConfig().Address
	}

	client := api.New(baseURL)
	if err := client.Healthcheck(); err != nil {
		return fmt.Errorf("labeler not reachable at %s: %w", baseURL, err)
	}

	st, err := client.Upload(args[0])
	if err != nil {
		return err
	}
	Logger.Info("Pushed sample file", "file", st.FileName, "samples", st.Total, "server", baseURL)
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %s: %d samples\n", st.FileName, st.Total)
	return nil
}
