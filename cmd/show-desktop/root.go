package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/shelepuginivan/showdesktop"
	"github.com/shelepuginivan/showdesktop/settings"
)

// themeKey is the setting that selects the icon palette.
const themeKey = "theme"

// options holds values of persistent flags.
type options struct {
	settingsPath  string
	logLevel      string
	toggleCommand string
	logger        zerolog.Logger
}

func NewRootCommand(version, commit, date string) *cobra.Command {
	opts := &options{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "show-desktop",
		Short: "Show Desktop dock item",
		Long: `show-desktop places a "Show Desktop" item in the dock of the desktop.
Clicking the item toggles desktop visibility. The item can be removed from
the dock with its "Undock" menu entry and brought back with "show-desktop enable".`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.settingsPath, "settings", "", "path of the settings file (default $XDG_CONFIG_HOME/show-desktop/settings.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.toggleCommand, "toggle-command", showdesktop.DesktopToggleCommand, "executable that toggles the desktop")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newToggleCommand(opts),
		newStateCommand(opts, "enable", true),
		newStateCommand(opts, "disable", false),
		newStatusCommand(opts),
		newMenuCommand(opts),
	)

	return rootCmd
}

// setup configures logging and resolves the settings path.
func (o *options) setup(cmd *cobra.Command) error {
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}

	o.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.TimeOnly,
	}).Level(level).With().Timestamp().Logger()

	if o.settingsPath == "" {
		path, err := settings.DefaultPath()
		if err != nil {
			return err
		}
		o.settingsPath = path
	}

	return nil
}

func (o *options) openSettings() (*settings.Store, error) {
	store, err := settings.Open(o.settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}

	return store, nil
}

func (o *options) launcher() *showdesktop.CommandLauncher {
	return showdesktop.NewCommandLauncher(o.toggleCommand, o.logger.With().Str("component", "launcher").Logger())
}

// newPlugin returns the plugin. If store is not nil, the "theme" setting of
// the plugin overrides the theme of the environment.
func (o *options) newPlugin(store *settings.Store) *showdesktop.Plugin {
	theme := themeFromEnv
	if store != nil {
		theme = func() showdesktop.Theme {
			return themeFromSettings(store)
		}
	}

	return showdesktop.New(
		showdesktop.WithLauncher(o.launcher()),
		showdesktop.WithWidgetFactory(func() showdesktop.Widget {
			return showdesktop.NewShowDesktopWidget(theme)
		}),
	)
}

// themeFromSettings reads the "theme" setting ("light" or "dark") and falls
// back to [themeFromEnv] for any other value.
func themeFromSettings(store *settings.Store) showdesktop.Theme {
	switch strings.ToLower(cast.ToString(store.Value(showdesktop.PluginName, themeKey, ""))) {
	case "dark":
		return showdesktop.ThemeDark
	case "light":
		return showdesktop.ThemeLight
	default:
		return themeFromEnv()
	}
}

// themeFromEnv reports the dark palette when GTK_THEME names a dark variant,
// e.g. "Adwaita:dark".
func themeFromEnv() showdesktop.Theme {
	theme := os.Getenv("GTK_THEME")

	for _, suffix := range []string{":dark", "-dark"} {
		if strings.HasSuffix(strings.ToLower(theme), suffix) {
			return showdesktop.ThemeDark
		}
	}

	return showdesktop.ThemeLight
}
