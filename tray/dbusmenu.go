package tray

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog"

	"github.com/shelepuginivan/showdesktop"
)

const (
	MenuInterface = "com.canonical.dbusmenu"
	MenuPath      = "/MenuBar"

	menuVersion uint32 = 3
)

// menuEvent is a single entry of the com.canonical.dbusmenu.EventGroup
// argument, (isvu).
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// menuServer implements com.canonical.dbusmenu for the context menu of a
// single dock item. The layout is rebuilt from the plugin menu whenever a
// client asks for it.
type menuServer struct {
	item   *exportedItem
	logger zerolog.Logger

	mu       sync.Mutex
	document string
	revision uint32
	layout   *LayoutNode
}

func newMenuServer(item *exportedItem, logger zerolog.Logger) *menuServer {
	return &menuServer{
		item:   item,
		logger: logger,
		layout: NewLayoutFromMenu(&showdesktop.Menu{}),
	}
}

// export publishes the menu object on the item connection.
func (m *menuServer) export() error {
	conn := m.item.conn

	if err := conn.Export(m, MenuPath, MenuInterface); err != nil {
		return fmt.Errorf("failed to export %s: %w", MenuInterface, err)
	}

	props, err := prop.Export(conn, MenuPath, prop.Map{
		MenuInterface: map[string]*prop.Prop{
			"Version": {
				Value:    menuVersion,
				Writable: false,
				Emit:     prop.EmitFalse,
			},
			"TextDirection": {
				Value:    "ltr",
				Writable: false,
				Emit:     prop.EmitFalse,
			},
			"Status": {
				Value:    "normal",
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"IconThemePath": {
				Value:    []string{},
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to export %s properties: %w", MenuInterface, err)
	}

	node := &introspect.Node{
		Name: MenuPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       MenuInterface,
				Methods:    introspect.Methods(m),
				Properties: props.Introspection(MenuInterface),
				Signals: []introspect.Signal{
					{Name: "ItemsPropertiesUpdated", Args: []introspect.Arg{
						{Name: "updatedProps", Type: "a(ia{sv})", Direction: "out"},
						{Name: "removedProps", Type: "a(ias)", Direction: "out"},
					}},
					{Name: "LayoutUpdated", Args: []introspect.Arg{
						{Name: "revision", Type: "u", Direction: "out"},
						{Name: "parent", Type: "i", Direction: "out"},
					}},
					{Name: "ItemActivationRequested", Args: []introspect.Arg{
						{Name: "id", Type: "i", Direction: "out"},
						{Name: "timestamp", Type: "u", Direction: "out"},
					}},
				},
			},
		},
	}

	if err := conn.Export(introspect.NewIntrospectable(node), MenuPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection of %s: %w", MenuPath, err)
	}

	return nil
}

// refresh rebuilds the layout from the plugin menu. If the menu changed,
// the revision is bumped and LayoutUpdated is emitted.
func (m *menuServer) refresh() *LayoutNode {
	var document string
	m.item.dock.invoke(func() {
		document = m.item.owner.ItemContextMenu(m.item.key)
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if document == m.document && m.revision > 0 {
		return m.layout
	}

	menu, err := showdesktop.ParseMenu(document)
	if err != nil {
		m.logger.Warn().Err(err).Str("item", m.item.key).Msg("invalid context menu")
		menu = &showdesktop.Menu{}
	}

	m.document = document
	m.layout = NewLayoutFromMenu(menu)
	m.revision++

	m.item.conn.Emit(MenuPath, MenuInterface+".LayoutUpdated", m.revision, rootID)

	return m.layout
}

// GetLayout implements com.canonical.dbusmenu.GetLayout.
func (m *menuServer) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, dbusLayout, *dbus.Error) {
	layout := m.refresh()

	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := layout.Find(parentID)
	if !ok {
		return 0, dbusLayout{}, dbus.MakeFailedError(fmt.Errorf("no such menu item: %d", parentID))
	}

	return m.revision, node.toDBus(recursionDepth, propertyNames), nil
}

// GetGroupProperties implements com.canonical.dbusmenu.GetGroupProperties.
// Unknown IDs are skipped.
func (m *menuServer) GetGroupProperties(ids []int32, propertyNames []string) ([]dbusGroupProperties, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]dbusGroupProperties, 0, len(ids))

	for _, id := range ids {
		node, ok := m.layout.Find(id)
		if !ok {
			continue
		}

		result = append(result, dbusGroupProperties{
			ID:         id,
			Properties: node.dbusProperties(propertyNames),
		})
	}

	return result, nil
}

// GetProperty implements com.canonical.dbusmenu.GetProperty.
func (m *menuServer) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.layout.Find(id)
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("no such menu item: %d", id))
	}

	value, ok := node.Properties[name]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("menu item %d has no property %s", id, name))
	}

	return dbus.MakeVariant(value), nil
}

// Event implements com.canonical.dbusmenu.Event. Only "clicked" events are
// relayed to the plugin.
func (m *menuServer) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if eventID != "clicked" {
		return nil
	}

	m.mu.Lock()
	node, ok := m.layout.Find(id)
	m.mu.Unlock()

	if !ok || node.ID == rootID {
		return dbus.MakeFailedError(fmt.Errorf("no such menu item: %d", id))
	}

	checked := false
	if _, toggle := node.Properties["toggle-type"]; toggle {
		checked = !node.Checked()
	}

	m.logger.Debug().Str("item", m.item.key).Str("menu", node.MenuID()).Msg("menu item clicked")

	m.item.dock.invoke(func() {
		m.item.owner.InvokedMenuItem(m.item.key, node.MenuID(), checked)
	})

	return nil
}

// EventGroup implements com.canonical.dbusmenu.EventGroup. It returns IDs
// of the events that could not be delivered.
func (m *menuServer) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	idErrors := []int32{}

	for _, event := range events {
		if err := m.Event(event.ID, event.EventID, event.Data, event.Timestamp); err != nil {
			idErrors = append(idErrors, event.ID)
		}
	}

	if len(events) > 0 && len(idErrors) == len(events) {
		return idErrors, dbus.MakeFailedError(fmt.Errorf("no event was delivered"))
	}

	return idErrors, nil
}

// AboutToShow implements com.canonical.dbusmenu.AboutToShow. The layout is
// rebuilt when the root menu is about to be shown; the result tells the
// client whether it changed.
func (m *menuServer) AboutToShow(id int32) (bool, *dbus.Error) {
	if id != rootID {
		return false, nil
	}

	m.mu.Lock()
	before := m.revision
	m.mu.Unlock()

	m.refresh()

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.revision != before, nil
}

// AboutToShowGroup implements com.canonical.dbusmenu.AboutToShowGroup.
func (m *menuServer) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	updatesNeeded := []int32{}
	idErrors := []int32{}

	for _, id := range ids {
		m.mu.Lock()
		_, ok := m.layout.Find(id)
		m.mu.Unlock()

		if !ok {
			idErrors = append(idErrors, id)
			continue
		}

		needUpdate, _ := m.AboutToShow(id)
		if needUpdate {
			updatesNeeded = append(updatesNeeded, id)
		}
	}

	return updatesNeeded, idErrors, nil
}
