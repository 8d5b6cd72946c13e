package showdesktop

import (
	"os/exec"

	"github.com/rs/zerolog"
)

// DesktopToggleCommand is the executable that toggles desktop visibility.
const DesktopToggleCommand = "/usr/lib/deepin-daemon/desktop-toggle"

// Launcher toggles desktop visibility.
type Launcher interface {
	// Launch starts the toggle and returns without waiting for it. There is
	// no result: the outcome of the toggle is not observed.
	Launch()
}

// LauncherFunc adapts an ordinary function to [Launcher].
type LauncherFunc func()

func (f LauncherFunc) Launch() {
	f()
}

// CommandLauncher runs an executable without arguments as a detached
// process.
type CommandLauncher struct {
	path   string
	logger zerolog.Logger
}

// NewCommandLauncher returns a [CommandLauncher] for the executable at path.
// If path is empty, [DesktopToggleCommand] is used.
func NewCommandLauncher(path string, logger zerolog.Logger) *CommandLauncher {
	if path == "" {
		path = DesktopToggleCommand
	}

	return &CommandLauncher{
		path:   path,
		logger: logger,
	}
}

// Path returns the executable started by the launcher.
func (l *CommandLauncher) Path() string {
	return l.path
}

// Launch starts the executable in a new session, so that it outlives the
// dock, and reaps it in the background. Failures to start are logged.
func (l *CommandLauncher) Launch() {
	cmd := exec.Command(l.path)
	cmd.SysProcAttr = detachedSysProcAttr()

	if err := cmd.Start(); err != nil {
		l.logger.Warn().Err(err).Str("command", l.path).Msg("failed to launch desktop toggle")
		return
	}

	l.logger.Debug().Str("command", l.path).Int("pid", cmd.Process.Pid).Msg("desktop toggle launched")

	go func() {
		// Wait only reaps the process; its status is of no interest.
		_ = cmd.Wait()
	}()
}
