package tray

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog"

	"github.com/shelepuginivan/showdesktop"
)

const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

// connCloseDelay is how long the connection of a removed item stays open.
const connCloseDelay = time.Second

type ItemCategory string

// StatusNotifierItem categories.
const (
	// The item describes the status of a generic application, for instance the
	// current state of a media player.
	ItemCategoryApplicationStatus ItemCategory = "ApplicationStatus"

	// The item describes the status of communication oriented applications, like
	// an instant messenger or an email client.
	ItemCategoryCommunications ItemCategory = "Communications"

	// The item describes services of the system not seen as a stand alone
	// application by the user. Dock plugins are published in this category.
	ItemCategorySystemServices ItemCategory = "SystemServices"

	// The item describes the state and control of a particular hardware, such as
	// an indicator of the battery charge or sound card volume control.
	ItemCategoryHardware ItemCategory = "Hardware"
)

type ItemStatus string

// StatusNotifierItem statuses.
const (
	// The item is hidden by most visualizations.
	ItemStatusPassive ItemStatus = "Passive"

	// The item is shown to the user.
	ItemStatusActive ItemStatus = "Active"

	// The item carries really important information for the user.
	// Visualizations should emphasize it in some way.
	ItemStatusNeedsAttention ItemStatus = "NeedsAttention"
)

// iconNotifier is implemented by widgets that report icon changes, such as
// [showdesktop.ShowDesktopWidget].
type iconNotifier interface {
	OnIconChanged(callback func(iconName string))
}

// exportedItem is a dock item published as a StatusNotifierItem. Every item
// has a bus connection of its own, so that closing the connection is enough
// for the watcher to forget the item.
type exportedItem struct {
	dock   *Dock
	conn   *dbus.Conn
	owner  showdesktop.PluginsItem
	key    string
	name   string
	props  *prop.Properties
	menu   *menuServer
	logger zerolog.Logger
}

// sniObject holds the methods of org.kde.StatusNotifierItem, separately from
// the bookkeeping methods of [exportedItem].
type sniObject struct {
	item *exportedItem
}

// export publishes the item and its menu on the item connection and requests
// the well-known name of the item.
func (item *exportedItem) export() error {
	widget := item.owner.ItemWidget(item.key)
	tips := item.owner.ItemTipsWidget(item.key)

	iconName := ""
	if widget != nil {
		iconName = widget.IconName()
	}

	obj := &sniObject{item: item}

	if err := item.conn.Export(obj, StatusNotifierItemPath, StatusNotifierItemInterface); err != nil {
		return fmt.Errorf("failed to export %s: %w", StatusNotifierItemInterface, err)
	}

	props, err := prop.Export(item.conn, StatusNotifierItemPath, prop.Map{
		StatusNotifierItemInterface: map[string]*prop.Prop{
			"Category":            {Value: string(ItemCategorySystemServices), Emit: prop.EmitFalse},
			"Id":                  {Value: item.key, Emit: prop.EmitFalse},
			"Title":               {Value: item.owner.PluginDisplayName(), Emit: prop.EmitFalse},
			"Status":              {Value: string(ItemStatusActive), Emit: prop.EmitFalse},
			"WindowId":            {Value: uint32(0), Emit: prop.EmitFalse},
			"IconName":            {Value: iconName, Emit: prop.EmitFalse},
			"IconPixmap":          {Value: []Pixmap{}, Emit: prop.EmitFalse},
			"OverlayIconName":     {Value: "", Emit: prop.EmitFalse},
			"OverlayIconPixmap":   {Value: []Pixmap{}, Emit: prop.EmitFalse},
			"AttentionIconName":   {Value: "", Emit: prop.EmitFalse},
			"AttentionIconPixmap": {Value: []Pixmap{}, Emit: prop.EmitFalse},
			"AttentionMovieName":  {Value: "", Emit: prop.EmitFalse},
			"ToolTip":             {Value: NewToolTip(tips.Text()), Emit: prop.EmitFalse},
			"ItemIsMenu":          {Value: false, Emit: prop.EmitFalse},
			"Menu":                {Value: dbus.ObjectPath(MenuPath), Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to export %s properties: %w", StatusNotifierItemInterface, err)
	}

	item.props = props

	node := &introspect.Node{
		Name: StatusNotifierItemPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       StatusNotifierItemInterface,
				Methods:    introspect.Methods(obj),
				Properties: props.Introspection(StatusNotifierItemInterface),
				Signals: []introspect.Signal{
					{Name: "NewTitle"},
					{Name: "NewIcon"},
					{Name: "NewAttentionIcon"},
					{Name: "NewOverlayIcon"},
					{Name: "NewToolTip"},
					{Name: "NewStatus", Args: []introspect.Arg{
						{Name: "status", Type: "s", Direction: "out"},
					}},
				},
			},
		},
	}

	if err := item.conn.Export(introspect.NewIntrospectable(node), StatusNotifierItemPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection of %s: %w", StatusNotifierItemPath, err)
	}

	item.menu = newMenuServer(item, item.logger)
	if err := item.menu.export(); err != nil {
		return err
	}

	if notifier, ok := widget.(iconNotifier); ok {
		notifier.OnIconChanged(item.setIcon)
	}

	reply, err := item.conn.RequestName(item.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name %s: %w", item.name, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", item.name)
	}

	return nil
}

// register announces the item to the StatusNotifierWatcher.
func (item *exportedItem) register() error {
	call := item.conn.Object(
		StatusNotifierWatcherInterface,
		StatusNotifierWatcherPath,
	).Call(StatusNotifierWatcherInterface+".RegisterStatusNotifierItem", 0, item.name)
	if call.Err != nil {
		return fmt.Errorf("failed to register item %s: %w", item.name, call.Err)
	}

	return nil
}

// setIcon updates the IconName property and emits NewIcon.
func (item *exportedItem) setIcon(iconName string) {
	if item.props == nil {
		return
	}

	item.props.SetMust(StatusNotifierItemInterface, "IconName", iconName)

	if err := item.conn.Emit(StatusNotifierItemPath, StatusNotifierItemInterface+".NewIcon"); err != nil {
		item.logger.Debug().Err(err).Str("item", item.key).Msg("failed to emit NewIcon")
	}
}

// setToolTip updates the ToolTip property and emits NewToolTip.
func (item *exportedItem) setToolTip(text string) {
	if item.props == nil {
		return
	}

	item.props.SetMust(StatusNotifierItemInterface, "ToolTip", NewToolTip(text))

	if err := item.conn.Emit(StatusNotifierItemPath, StatusNotifierItemInterface+".NewToolTip"); err != nil {
		item.logger.Debug().Err(err).Str("item", item.key).Msg("failed to emit NewToolTip")
	}
}

// withdraw unexports the item and releases its name. The watcher drops the
// item once the name is gone.
func (item *exportedItem) withdraw() {
	if notifier, ok := item.owner.ItemWidget(item.key).(iconNotifier); ok {
		notifier.OnIconChanged(nil)
	}

	for path, iface := range map[dbus.ObjectPath]string{
		StatusNotifierItemPath: StatusNotifierItemInterface,
		MenuPath:               MenuInterface,
	} {
		item.conn.Export(nil, path, iface)
		item.conn.Export(nil, path, "org.freedesktop.DBus.Properties")
		item.conn.Export(nil, path, "org.freedesktop.DBus.Introspectable")
	}

	if _, err := item.conn.ReleaseName(item.name); err != nil {
		item.logger.Debug().Err(err).Str("name", item.name).Msg("failed to release name")
	}
}

// close withdraws the item and closes its connection.
func (item *exportedItem) close() error {
	item.withdraw()
	return item.conn.Close()
}

// closeLater withdraws the item and closes its connection after
// connCloseDelay. The item may be removed from within one of its own method
// handlers, and the reply to that call is sent over the same connection.
func (item *exportedItem) closeLater() {
	item.withdraw()

	time.AfterFunc(connCloseDelay, func() {
		if err := item.conn.Close(); err != nil {
			item.logger.Debug().Err(err).Msg("failed to close connection")
		}
	})
}

// ContextMenu asks the item to show its context menu. The menu is published
// through com.canonical.dbusmenu, so there is nothing to do.
func (o *sniObject) ContextMenu(x, y int32) *dbus.Error {
	return nil
}

// Activate runs the item command, as if the item was clicked in the dock.
func (o *sniObject) Activate(x, y int32) *dbus.Error {
	o.item.activate()
	return nil
}

// SecondaryActivate behaves like Activate; dock items have a single action.
func (o *sniObject) SecondaryActivate(x, y int32) *dbus.Error {
	o.item.activate()
	return nil
}

// Scroll is not supported by dock items.
func (o *sniObject) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}

func (item *exportedItem) activate() {
	var command string
	item.dock.invoke(func() {
		command = item.owner.ItemCommand(item.key)
	})

	item.logger.Debug().Str("item", item.key).Msg("item activated")

	if command != "" {
		item.dock.runCommand(command)
	}
}
