package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OCAP2/dockyard/internal/api"
)

// newControlCmds returns the commands that drive a running station
// through its API.
func newControlCmds(root *rootOptions) []*cobra.Command {
	run := func(fn func(ctx context.Context, c *api.Client, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			return fn(ctx, api.NewClient(root.apiURL()), cmd, args)
		}
	}

	launch := &cobra.Command{
		Use:   "launch <blueprint>",
		Short: "Launch a module toward the active hub",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, c *api.Client, cmd *cobra.Command, args []string) error {
			r, err := c.Launch(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderLaunch(r))
			return nil
		}),
	}

	var queued bool
	fault := &cobra.Command{
		Use:   "fault",
		Short: "Put a random operational module into a critical state",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *api.Client, cmd *cobra.Command, _ []string) error {
			if queued {
				if err := c.QueueFault(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("fault queued"))
				return nil
			}
			m, err := c.Fault(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusStyle(m.Status).Render(string(m.Status)), valueStyle.Render(m.Name))
			return nil
		}),
	}

	fault.Flags().BoolVar(&queued, "queued", false, "schedule the fault and return without waiting")

	repair := &cobra.Command{
		Use:   "repair",
		Short: "Restore every critical module",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *api.Client, cmd *cobra.Command, _ []string) error {
			n, err := c.Repair(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), field("repaired", n))
			return nil
		}),
	}

	undock := &cobra.Command{
		Use:   "undock <module-id>",
		Short: "Release a docked module",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, c *api.Client, cmd *cobra.Command, args []string) error {
			m, err := c.Undock(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusStyle(m.Status).Render(string(m.Status)), valueStyle.Render(m.Name))
			return nil
		}),
	}

	hub := &cobra.Command{
		Use:   "hub <module-id>",
		Short: "Make a hub node the docking target",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, c *api.Client, cmd *cobra.Command, args []string) error {
			h, err := c.SetHub(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), field("hub", h.Name))
			return nil
		}),
	}

	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "List launchable blueprints",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *api.Client, cmd *cobra.Command, _ []string) error {
			bps, err := c.Catalog(ctx)
			if err != nil {
				return err
			}
			for _, bp := range bps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-22s %s\n",
					swatch(bp.Color), bp.Name, mutedStyle.Render(kindLabel(bp.Kind)))
			}
			return nil
		}),
	}

	return []*cobra.Command{launch, fault, repair, undock, hub, catalog}
}
