// Package tray is a dock host that publishes dock plugins on the session bus
// as [StatusNotifierItem] instances.
//
// # Usage
//
// A [Dock] implements [showdesktop.PluginProxy]. Plugins loaded into it with
// [Dock.Load] store their settings in a [Store] and show or hide their items
// through the dock:
//   - showing an item exports an org.kde.StatusNotifierItem object together
//     with its com.canonical.dbusmenu context menu, and registers it with the
//     StatusNotifierWatcher;
//   - hiding an item withdraws it from the bus.
//
// Activation requests and menu clicks coming from the system tray are relayed
// back to the plugin. All calls into plugins are serialized, so plugins never
// observe concurrent calls.
//
// If no StatusNotifierWatcher is present on the bus, [Dock.Start] runs an
// embedded [Watcher].
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package tray

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/shelepuginivan/showdesktop"
)

// Store persists plugin settings. [settings.Store] implements it.
type Store interface {
	Value(owner, key string, def any) any
	SetValue(owner, key string, value any) error
	Reload() (bool, error)
}

// Connector opens a new private connection to the session bus.
type Connector func() (*dbus.Conn, error)

var _ showdesktop.PluginProxy = (*Dock)(nil)

// Dock hosts dock plugins on the session bus.
type Dock struct {
	conn    *dbus.Conn
	store   Store
	logger  zerolog.Logger
	id      any
	connect Connector

	// pluginMu serializes calls into plugins. Plugins call back into the dock
	// while it is held, so it must never be taken by proxy methods.
	pluginMu sync.Mutex
	plugins  []showdesktop.PluginsItem

	mu      sync.Mutex
	closed  bool
	seq     int
	items   map[string]*exportedItem
	watcher *Watcher
}

// Option configures a [Dock].
type Option func(*Dock)

// WithLogger sets the logger of the dock. Defaults to [zerolog.Nop].
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dock) {
		d.logger = logger
	}
}

// WithID sets the unique identifier used in bus names of items, such as
// org.kde.StatusNotifierItem-<id>-1. Defaults to the process ID.
func WithID(id any) Option {
	return func(d *Dock) {
		d.id = id
	}
}

// WithConnector sets the function that opens connections for items. Defaults
// to [dbus.ConnectSessionBus].
func WithConnector(connect Connector) Option {
	return func(d *Dock) {
		d.connect = connect
	}
}

// NewDock returns a new [Dock]. Parameter conn is used to talk to the
// StatusNotifierWatcher; every item gets a connection of its own.
func NewDock(conn *dbus.Conn, store Store, opts ...Option) *Dock {
	d := &Dock{
		conn:   conn,
		store:  store,
		logger: zerolog.Nop(),
		id:     os.Getpid(),
		connect: func() (*dbus.Conn, error) {
			return dbus.ConnectSessionBus()
		},
		items: make(map[string]*exportedItem),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start makes sure a StatusNotifierWatcher is present on the bus, starting
// an embedded one if necessary.
//
// Start must be called before plugins are loaded.
func (d *Dock) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("start: dock is closed")
	}

	var hasOwner bool
	err := d.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, StatusNotifierWatcherInterface).Store(&hasOwner)
	if err != nil {
		return fmt.Errorf("start: failed to look up %s: %w", StatusNotifierWatcherInterface, err)
	}

	if hasOwner {
		return nil
	}

	d.logger.Info().Msg("no StatusNotifierWatcher on the bus, starting embedded watcher")

	watcher := NewWatcher(d.conn, d.logger.With().Str("component", "watcher").Logger())
	if err := watcher.Listen(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	d.watcher = watcher

	return nil
}

// Load initializes plugin with the dock as its proxy.
func (d *Dock) Load(plugin showdesktop.PluginsItem) {
	d.invoke(func() {
		d.plugins = append(d.plugins, plugin)

		d.logger.Info().
			Str("plugin", plugin.PluginName()).
			Stringer("type", plugin.Type()).
			Msg("loading plugin")

		plugin.Init(d)
	})
}

// ReloadSettings re-reads the settings store. If anything changed, every
// plugin is notified, and the icons and tooltips of exported items are
// refreshed.
func (d *Dock) ReloadSettings() error {
	changed, err := d.store.Reload()
	if err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}

	if !changed {
		return nil
	}

	d.logger.Info().Msg("settings changed")

	d.invoke(func() {
		for _, plugin := range d.plugins {
			plugin.PluginSettingsChanged()
		}

		d.mu.Lock()
		items := make([]*exportedItem, 0, len(d.items))
		for _, item := range d.items {
			items = append(items, item)
		}
		d.mu.Unlock()

		for _, item := range items {
			item.owner.RefreshIcon(item.key)
			item.setToolTip(item.owner.ItemTipsWidget(item.key).Text())
		}
	})

	return nil
}

// Docked reports whether the StatusNotifierWatcher lists the item of owner
// with the given key.
func (d *Dock) Docked(owner showdesktop.PluginsItem, itemKey string) (bool, error) {
	d.mu.Lock()
	item, ok := d.items[itemID(owner, itemKey)]
	d.mu.Unlock()

	if !ok {
		return false, nil
	}

	watcherObj := d.conn.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath)

	property, err := watcherObj.GetProperty(StatusNotifierWatcherInterface + ".RegisteredStatusNotifierItems")
	if err != nil {
		return false, fmt.Errorf("docked: %w", err)
	}

	registeredItems, ok := property.Value().([]string)
	if !ok {
		return false, fmt.Errorf("docked: invalid format of RegisteredStatusNotifierItems")
	}

	// Watchers list items either by the name passed on registration or by
	// the unique name of the registering connection.
	names := []string{item.name}
	if connNames := item.conn.Names(); len(connNames) > 0 {
		names = append(names, connNames[0])
	}

	for _, registered := range registeredItems {
		if slices.Contains(names, ownerOfItem(registered)) {
			return true, nil
		}
	}

	return false, nil
}

// Close withdraws all items and stops the embedded watcher, if any.
//
// Dock cannot be reused after Close was called.
func (d *Dock) Close() error {
	var err error

	d.invoke(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.closed {
			return
		}

		for id, item := range d.items {
			if cerr := item.close(); cerr != nil {
				d.logger.Warn().Err(cerr).Str("item", item.key).Msg("failed to close item")
			}
			delete(d.items, id)
		}

		d.closed = true

		if d.watcher != nil {
			err = d.watcher.Close()
		}
	})

	return err
}

// GetValue implements [showdesktop.PluginProxy].
func (d *Dock) GetValue(owner showdesktop.PluginsItem, key string, def any) any {
	return d.store.Value(owner.PluginName(), key, def)
}

// SaveValue implements [showdesktop.PluginProxy]. Values that cannot be
// written to disk are kept in memory and the failure is logged.
func (d *Dock) SaveValue(owner showdesktop.PluginsItem, key string, value any) {
	if err := d.store.SetValue(owner.PluginName(), key, value); err != nil {
		d.logger.Error().Err(err).Str("plugin", owner.PluginName()).Str("key", key).Msg("failed to save value")
	}
}

// ItemAdded implements [showdesktop.PluginProxy]. It publishes the item on
// the bus; adding an item that is already published does nothing.
func (d *Dock) ItemAdded(owner showdesktop.PluginsItem, itemKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := itemID(owner, itemKey)

	if d.closed {
		return
	}

	if _, exists := d.items[id]; exists {
		return
	}

	logger := d.logger.With().Str("plugin", owner.PluginName()).Str("item", itemKey).Logger()

	conn, err := d.connect()
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to session bus")
		return
	}

	d.seq++

	item := &exportedItem{
		dock:   d,
		conn:   conn,
		owner:  owner,
		key:    itemKey,
		name:   fmt.Sprintf("org.kde.StatusNotifierItem-%v-%d", d.id, d.seq),
		logger: logger,
	}

	if err := item.export(); err != nil {
		logger.Error().Err(err).Msg("failed to export item")
		item.close()
		return
	}

	if err := item.register(); err != nil {
		logger.Error().Err(err).Msg("failed to register item")
		item.close()
		return
	}

	if widget := owner.ItemWidget(itemKey); widget != nil {
		widget.SetVisible(true)
	}

	d.items[id] = item

	logger.Info().Str("name", item.name).Msg("item added")
}

// ItemRemoved implements [showdesktop.PluginProxy]. It withdraws the item
// from the bus; removing an item that is not published does nothing.
func (d *Dock) ItemRemoved(owner showdesktop.PluginsItem, itemKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := itemID(owner, itemKey)

	item, exists := d.items[id]
	if !exists {
		return
	}

	delete(d.items, id)

	if widget := owner.ItemWidget(itemKey); widget != nil {
		widget.SetVisible(false)
	}

	item.closeLater()

	item.logger.Info().Msg("item removed")
}

// invoke runs fn with exclusive access to plugins.
func (d *Dock) invoke(fn func()) {
	d.pluginMu.Lock()
	defer d.pluginMu.Unlock()

	fn()
}

// runCommand runs a command line returned by [showdesktop.PluginsItem.ItemCommand]
// without waiting for it.
func (d *Dock) runCommand(command string) {
	cmd := exec.Command("/bin/sh", "-c", command)

	if err := cmd.Start(); err != nil {
		d.logger.Warn().Err(err).Str("command", command).Msg("failed to run item command")
		return
	}

	go func() {
		_ = cmd.Wait()
	}()
}

func itemID(owner showdesktop.PluginsItem, itemKey string) string {
	return owner.PluginName() + "/" + itemKey
}
