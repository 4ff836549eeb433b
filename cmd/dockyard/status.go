package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OCAP2/dockyard/internal/api"
)

const clientTimeout = 10 * time.Second

func newStatusCmd(root *rootOptions) *cobra.Command {
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running station",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(root.apiURL())
			for {
				if err := printStatus(cmd, client); err != nil {
					return err
				}
				if watch <= 0 {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(watch):
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
		},
	}
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh interval, 0 prints once")
	return cmd
}

func printStatus(cmd *cobra.Command, client *api.Client) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()

	snap, err := client.Station(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach station: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(snap))
	return nil
}
