package tray

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog"
)

const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// Watcher implements [StatusNotifierWatcher]. The dock starts one when no
// other watcher is present on the session bus, so that its items can be
// registered on desktops without a system tray.
//
// [StatusNotifierWatcher]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierWatcher/
type Watcher struct {
	closed  bool
	conn    *dbus.Conn
	logger  zerolog.Logger
	mu      sync.Mutex
	signals chan *dbus.Signal
	hosts   []string
	items   []string
	props   *prop.Properties
}

func NewWatcher(conn *dbus.Conn, logger zerolog.Logger) *Watcher {
	return &Watcher{
		closed:  false,
		conn:    conn,
		logger:  logger,
		signals: make(chan *dbus.Signal, 64),
	}
}

// Listen requests the watcher name and exports the watcher object.
//
// If Listen is called after [Watcher.Close], an error is returned.
func (w *Watcher) Listen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("listen: watcher is closed")
	}

	reply, err := w.conn.RequestName(StatusNotifierWatcherInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", StatusNotifierWatcherInterface, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", StatusNotifierWatcherInterface)
	}

	if err := w.conn.Export(w, StatusNotifierWatcherPath, StatusNotifierWatcherInterface); err != nil {
		return fmt.Errorf("listen: failed to export %s: %w", StatusNotifierWatcherInterface, err)
	}

	props, err := prop.Export(w.conn, StatusNotifierWatcherPath, w.propertyMap())
	if err != nil {
		return fmt.Errorf("listen: failed to export properties: %w", err)
	}

	w.props = props
	w.subscribe()

	return nil
}

// Close releases the watcher name and stops tracking items and hosts.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	if _, err := w.conn.ReleaseName(StatusNotifierWatcherInterface); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	for _, host := range w.hosts {
		w.unwatchName(host)
	}

	for _, item := range w.items {
		// Items are stored as
		//
		//  <busName>/<path>
		//
		// and signals match against busName.
		w.unwatchName(ownerOfItem(item))
	}

	w.conn.Export(nil, StatusNotifierWatcherPath, StatusNotifierWatcherInterface)
	w.conn.RemoveSignal(w.signals)
	close(w.signals)

	w.closed = true

	return nil
}

// Items returns the registered items in the "<busName>/<path>" form.
func (w *Watcher) Items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Clone(w.items)
}

// RegisterStatusNotifierItem implements
// org.kde.StatusNotifierWatcher.RegisterStatusNotifierItem.
//
// The service is either a bus name, in which case the item lives at
// /StatusNotifierItem, or an object path on the connection of the caller.
// Items are recorded as "<busName>/<path>" and dropped when the bus name
// loses its owner.
func (w *Watcher) RegisterStatusNotifierItem(service string, sender dbus.Sender) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	identifier := service + StatusNotifierItemPath
	if strings.HasPrefix(service, "/") {
		identifier = string(sender) + service
	}

	if slices.Contains(w.items, identifier) {
		return nil
	}

	w.items = append(w.items, identifier)

	// Whenever the name is released or its owner disconnects, D-Bus sends
	// NameOwnerChanged with an empty NewOwner argument, and the item is
	// unregistered.
	w.watchName(ownerOfItem(identifier))

	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemRegistered", identifier)
	w.updateProperties()

	w.logger.Debug().Str("item", identifier).Msg("item registered")

	return nil
}

// RegisterStatusNotifierHost implements
// org.kde.StatusNotifierWatcher.RegisterStatusNotifierHost.
func (w *Watcher) RegisterStatusNotifierHost(service string, sender dbus.Sender) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.hosts, service) {
		return nil
	}

	w.hosts = append(w.hosts, service)

	w.watchName(service)

	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostRegistered")
	w.updateProperties()

	w.logger.Debug().Str("host", service).Msg("host registered")

	return nil
}

func (w *Watcher) subscribe() {
	w.conn.Signal(w.signals)

	go func() {
		for signal := range w.signals {
			if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" {
				continue
			}

			if len(signal.Body) < 3 {
				continue
			}

			name, ok := signal.Body[0].(string)
			if !ok {
				continue
			}

			newOwner, ok := signal.Body[2].(string)
			if !ok {
				continue
			}

			if newOwner == "" {
				w.tryUnregisterHost(name)
				w.tryUnregisterItems(name)
			}
		}
	}()
}

func (w *Watcher) tryUnregisterHost(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := slices.Index(w.hosts, name)
	if idx < 0 {
		return
	}

	w.unwatchName(name)

	w.hosts = slices.Delete(w.hosts, idx, idx+1)
	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostUnregistered")
	w.updateProperties()
}

// tryUnregisterItems drops every item registered under the given bus name.
func (w *Watcher) tryUnregisterItems(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := []string{}
	w.items = slices.DeleteFunc(w.items, func(item string) bool {
		if ownerOfItem(item) != name {
			return false
		}

		removed = append(removed, item)
		return true
	})

	if len(removed) == 0 {
		return
	}

	w.unwatchName(name)

	for _, item := range removed {
		w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemUnregistered", item)
		w.logger.Debug().Str("item", item).Msg("item unregistered")
	}

	w.updateProperties()
}

func (w *Watcher) watchName(name string) {
	w.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	)
}

func (w *Watcher) unwatchName(name string) {
	w.conn.RemoveMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	)
}

func (w *Watcher) propertyMap() prop.Map {
	return prop.Map{
		StatusNotifierWatcherInterface: map[string]*prop.Prop{
			"RegisteredStatusNotifierItems": {
				Value:    slices.Clone(w.items),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"IsStatusNotifierHostRegistered": {
				Value:    len(w.hosts) > 0,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"ProtocolVersion": {
				Value:    int32(0),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
}

func (w *Watcher) updateProperties() {
	if w.props == nil {
		return
	}

	w.props.SetMust(StatusNotifierWatcherInterface, "RegisteredStatusNotifierItems", slices.Clone(w.items))
	w.props.SetMust(StatusNotifierWatcherInterface, "IsStatusNotifierHostRegistered", len(w.hosts) > 0)
}

// ownerOfItem returns the bus name part of an item identifier of the form
// "<busName>/<path>", e.g. ":1.185/StatusNotifierItem".
func ownerOfItem(item string) string {
	owner, _, _ := strings.Cut(item, "/")
	return owner
}
