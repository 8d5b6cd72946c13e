package tray

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/showdesktop"
	"github.com/shelepuginivan/showdesktop/settings"
)

// The tests in this file need a session bus without a StatusNotifierWatcher,
// e.g. one started with
//
//	dbus-run-session -- go test ./tray

const busTimeout = 5 * time.Second

// sessionConn connects to the session bus or skips the test.
func sessionConn(t *testing.T) *dbus.Conn {
	t.Helper()

	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no session bus")
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		t.Skipf("cannot connect to session bus: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// startedDock returns a started dock that runs the embedded watcher.
func startedDock(t *testing.T, store Store) *Dock {
	t.Helper()

	conn := sessionConn(t)

	var hasOwner bool
	require.NoError(t, conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, StatusNotifierWatcherInterface).Store(&hasOwner))
	if hasOwner {
		t.Skip("another StatusNotifierWatcher is running")
	}

	dock := NewDock(conn, store, WithID("test"))
	require.NoError(t, dock.Start())
	require.NotNil(t, dock.watcher)

	t.Cleanup(func() {
		dock.Close()
	})

	return dock
}

func countingPlugin(launches *atomic.Int32, opts ...showdesktop.Option) *showdesktop.Plugin {
	opts = append([]showdesktop.Option{
		showdesktop.WithLauncher(showdesktop.LauncherFunc(func() { launches.Add(1) })),
		showdesktop.WithTranslator(showdesktop.NewTranslator("C")),
	}, opts...)

	return showdesktop.New(opts...)
}

func itemName(dock *Dock) string {
	dock.mu.Lock()
	defer dock.mu.Unlock()

	for _, item := range dock.items {
		return item.name
	}

	return ""
}

func TestBus_ItemIsExported(t *testing.T) {
	dock := startedDock(t, settings.NewMemory())
	client := sessionConn(t)

	var launches atomic.Int32
	plugin := countingPlugin(&launches)
	dock.Load(plugin)

	name := itemName(dock)
	require.NotEmpty(t, name)
	assert.Equal(t, []string{name + StatusNotifierItemPath}, dock.watcher.Items())

	docked, err := dock.Docked(plugin, showdesktop.PluginName)
	require.NoError(t, err)
	assert.True(t, docked)

	obj := client.Object(name, StatusNotifierItemPath)

	properties := map[string]any{
		"Id":         showdesktop.PluginName,
		"Category":   string(ItemCategorySystemServices),
		"Status":     string(ItemStatusActive),
		"Title":      "Show Desktop",
		"IconName":   "deepin-toggle-desktop",
		"ItemIsMenu": false,
		"Menu":       dbus.ObjectPath(MenuPath),
	}

	for property, want := range properties {
		value, err := obj.GetProperty(StatusNotifierItemInterface + "." + property)
		require.NoError(t, err, property)
		assert.Equal(t, want, value.Value(), property)
	}

	require.NoError(t, obj.Call(StatusNotifierItemInterface+".Activate", 0, int32(0), int32(0)).Err)
	assert.Equal(t, int32(1), launches.Load())

	require.NoError(t, obj.Call(StatusNotifierItemInterface+".SecondaryActivate", 0, int32(0), int32(0)).Err)
	assert.Equal(t, int32(2), launches.Load())
}

func TestBus_MenuLayout(t *testing.T) {
	dock := startedDock(t, settings.NewMemory())
	client := sessionConn(t)

	var launches atomic.Int32
	dock.Load(countingPlugin(&launches))

	menu := client.Object(itemName(dock), MenuPath)

	var (
		revision uint32
		layout   dbusLayout
	)
	require.NoError(t, menu.Call(MenuInterface+".GetLayout", 0, rootID, int32(-1), []string{}).Store(&revision, &layout))

	assert.Equal(t, uint32(1), revision)
	require.Len(t, layout.Children, 2)

	var entry dbusLayout
	require.NoError(t, dbus.Store([]any{layout.Children[0].Value()}, &entry))
	assert.Equal(t, "Show Desktop", entry.Properties["label"].Value())

	var changed bool
	require.NoError(t, menu.Call(MenuInterface+".AboutToShow", 0, rootID).Store(&changed))
	assert.False(t, changed, "unchanged menu must keep its revision")

	require.NoError(t, menu.Call(MenuInterface+".Event", 0, int32(1), "clicked", dbus.MakeVariant(""), uint32(0)).Err)
	assert.Equal(t, int32(1), launches.Load())
}

func TestBus_UndockClickIsAnswered(t *testing.T) {
	store := settings.NewMemory()
	dock := startedDock(t, store)
	client := sessionConn(t)

	var launches atomic.Int32
	plugin := countingPlugin(&launches)
	dock.Load(plugin)

	menu := client.Object(itemName(dock), MenuPath)
	require.NoError(t, menu.Call(MenuInterface+".GetLayout", 0, rootID, int32(-1), []string{}).Err)

	// Entry 2 is "Undock": the item removes itself while the call is being
	// handled.
	err := menu.Call(MenuInterface+".Event", 0, int32(2), "clicked", dbus.MakeVariant(""), uint32(0)).Err
	require.NoError(t, err)

	assert.Equal(t, false, store.Value(showdesktop.PluginName, "enable", true))
	assert.Eventually(t, func() bool {
		return len(dock.watcher.Items()) == 0
	}, busTimeout, 10*time.Millisecond)

	docked, err := dock.Docked(plugin, showdesktop.PluginName)
	require.NoError(t, err)
	assert.False(t, docked)
}

func TestBus_ReloadSettingsEmitsNewIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	store, err := settings.Open(path)
	require.NoError(t, err)

	dock := startedDock(t, store)
	client := sessionConn(t)

	var launches atomic.Int32
	dock.Load(countingPlugin(&launches, showdesktop.WithWidgetFactory(func() showdesktop.Widget {
		return showdesktop.NewShowDesktopWidget(func() showdesktop.Theme {
			if store.Value(showdesktop.PluginName, "theme", "") == "dark" {
				return showdesktop.ThemeDark
			}
			return showdesktop.ThemeLight
		})
	})))

	name := itemName(dock)

	require.NoError(t, client.AddMatchSignal(
		dbus.WithMatchObjectPath(StatusNotifierItemPath),
		dbus.WithMatchInterface(StatusNotifierItemInterface),
		dbus.WithMatchMember("NewIcon"),
	))

	signals := make(chan *dbus.Signal, 8)
	client.Signal(signals)

	require.NoError(t, os.WriteFile(path, []byte("show-desktop:\n  theme: dark\n"), 0o644))
	require.NoError(t, dock.ReloadSettings())

	select {
	case signal := <-signals:
		assert.Equal(t, StatusNotifierItemInterface+".NewIcon", signal.Name)
	case <-time.After(busTimeout):
		t.Fatal("NewIcon was not emitted")
	}

	value, err := client.Object(name, StatusNotifierItemPath).GetProperty(StatusNotifierItemInterface + ".IconName")
	require.NoError(t, err)
	assert.Equal(t, "deepin-toggle-desktop-dark", value.Value())
}

func TestBus_WatcherDropsVanishedItems(t *testing.T) {
	dock := startedDock(t, settings.NewMemory())
	client := sessionConn(t)

	watcher := client.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath)

	name := "org.kde.StatusNotifierItem-client-1"
	reply, err := client.RequestName(name, dbus.NameFlagDoNotQueue)
	require.NoError(t, err)
	require.Equal(t, dbus.RequestNameReplyPrimaryOwner, reply)

	require.NoError(t, watcher.Call(StatusNotifierWatcherInterface+".RegisterStatusNotifierItem", 0, name).Err)
	require.NoError(t, watcher.Call(StatusNotifierWatcherInterface+".RegisterStatusNotifierItem", 0, "/org/ayatana/NotificationItem/client").Err)

	unique := client.Names()[0]
	assert.ElementsMatch(t, []string{
		name + StatusNotifierItemPath,
		unique + "/org/ayatana/NotificationItem/client",
	}, dock.watcher.Items())

	value, err := watcher.GetProperty(StatusNotifierWatcherInterface + ".RegisteredStatusNotifierItems")
	require.NoError(t, err)
	assert.Len(t, value.Value(), 2)

	// Releasing the name drops only the item registered under it.
	_, err = client.ReleaseName(name)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{unique + "/org/ayatana/NotificationItem/client"}, dock.watcher.Items())
	}, busTimeout, 10*time.Millisecond)

	// Disconnecting drops the rest.
	require.NoError(t, client.Close())

	assert.Eventually(t, func() bool {
		return len(dock.watcher.Items()) == 0
	}, busTimeout, 10*time.Millisecond)
}
