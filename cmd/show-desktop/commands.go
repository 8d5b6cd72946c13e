package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/shelepuginivan/showdesktop"
	"github.com/shelepuginivan/showdesktop/tray"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Publish the dock item and serve it until interrupted",
		Long: `Publish the Show Desktop item on the session bus and serve it until
SIGINT or SIGTERM is received. SIGHUP reloads the settings file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
}

func run(opts *options) error {
	logger := opts.logger

	store, err := opts.openSettings()
	if err != nil {
		return err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	dock := tray.NewDock(conn, store, tray.WithLogger(logger.With().Str("component", "dock").Logger()))

	if err := dock.Start(); err != nil {
		return err
	}
	defer dock.Close()

	plugin := opts.newPlugin(store)
	dock.Load(plugin)

	logger.Info().Str("settings", store.Path()).Msg("show-desktop is running")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for sig := range signals {
		if sig != syscall.SIGHUP {
			logger.Info().Stringer("signal", sig).Msg("shutting down")
			return nil
		}

		if err := dock.ReloadSettings(); err != nil {
			logger.Error().Err(err).Msg("failed to reload settings")
		}
	}

	return nil
}

func newToggleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle desktop visibility once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin := opts.newPlugin(nil)
			plugin.ItemCommand(showdesktop.PluginName)
			return nil
		},
	}
}

func newStateCommand(opts *options, use string, enable bool) *cobra.Command {
	short := "Put the item back into the dock"
	if !enable {
		short = "Remove the item from the dock"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

A running "show-desktop run" picks up the change on SIGHUP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openSettings()
			if err != nil {
				return err
			}

			plugin := opts.newPlugin(store)
			plugin.Init(newOfflineProxy(store, opts.logger))

			if plugin.PluginIsDisable() == !enable {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already %sd\n", showdesktop.PluginName, use)
				return nil
			}

			plugin.PluginStateSwitched()

			fmt.Fprintf(cmd.OutOrStdout(), "%s %sd\n", showdesktop.PluginName, use)
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted state of the dock item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openSettings()
			if err != nil {
				return err
			}

			plugin := opts.newPlugin(store)
			plugin.Init(newOfflineProxy(store, opts.logger))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plugin:   %s (%s)\n", plugin.PluginName(), plugin.PluginDisplayName())
			fmt.Fprintf(out, "enabled:  %t\n", !plugin.PluginIsDisable())
			fmt.Fprintf(out, "sort key: %d\n", plugin.ItemSortKey(showdesktop.PluginName))
			fmt.Fprintf(out, "settings: %s\n", store.Path())

			return nil
		},
	}
}

func newMenuCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Print the context menu description of the dock item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin := opts.newPlugin(nil)
			fmt.Fprintln(cmd.OutOrStdout(), plugin.ItemContextMenu(showdesktop.PluginName))
			return nil
		},
	}
}
