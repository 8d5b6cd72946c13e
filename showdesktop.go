package showdesktop

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// PluginName is the identifier of the plugin and of its only item.
	PluginName = "show-desktop"

	// Settings key of the flag that keeps the item in the dock.
	stateKey = "enable"
)

// sortKey returns the settings key under which the position of the item is
// stored.
func sortKey(itemKey string) string {
	return fmt.Sprintf("pos_%s_%d", itemKey, DisplayModeEfficient)
}

var _ PluginsItem = (*Plugin)(nil)

// Plugin is the "Show Desktop" dock plugin.
//
// Plugin is not safe for concurrent use. Hosts call it from a single event
// loop.
type Plugin struct {
	proxy     PluginProxy
	loaded    bool
	widget    Widget
	tips      TipsWidget
	launcher  Launcher
	tr        *Translator
	newWidget func() Widget
}

// Option configures a [Plugin].
type Option func(*Plugin)

// WithLauncher sets the launcher used to toggle the desktop. Defaults to a
// [CommandLauncher] for [DesktopToggleCommand].
func WithLauncher(launcher Launcher) Option {
	return func(p *Plugin) {
		p.launcher = launcher
	}
}

// WithTranslator sets the translator of display strings. Defaults to the
// locale of the process.
func WithTranslator(tr *Translator) Option {
	return func(p *Plugin) {
		p.tr = tr
	}
}

// WithWidgetFactory sets the constructor of the primary widget. It is called
// at most once, the first time the plugin is enabled. Defaults to
// [NewShowDesktopWidget] with the light palette.
func WithWidgetFactory(factory func() Widget) Option {
	return func(p *Plugin) {
		p.newWidget = factory
	}
}

// WithTipsWidget sets the tooltip widget. Defaults to [Tips].
func WithTipsWidget(tips TipsWidget) Option {
	return func(p *Plugin) {
		p.tips = tips
	}
}

// New returns a new [Plugin]. The tooltip widget is created immediately and
// hidden; the primary widget is created when the plugin is first enabled.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		launcher: NewCommandLauncher(DesktopToggleCommand, zerolog.Nop()),
		newWidget: func() Widget {
			return NewShowDesktopWidget(nil)
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.tr == nil {
		p.tr = NewTranslatorFromEnv()
	}

	if p.tips == nil {
		p.tips = NewTips()
	}

	p.tips.SetVisible(false)
	p.tips.SetAccessibleName(PluginName)

	return p
}

func (p *Plugin) PluginName() string {
	return PluginName
}

func (p *Plugin) PluginDisplayName() string {
	return p.tr.Tr(msgShowDesktop)
}

// ItemWidget returns the primary widget regardless of itemKey. The result is
// nil until the plugin has been enabled once.
func (p *Plugin) ItemWidget(itemKey string) Widget {
	return p.widget
}

// ItemTipsWidget tags the tooltip widget with itemKey, labels it with the
// display name and returns it.
func (p *Plugin) ItemTipsWidget(itemKey string) TipsWidget {
	p.tips.SetObjectName(itemKey)
	p.tips.SetText(p.PluginDisplayName())

	return p.tips
}

// Init stores proxy and loads the plugin unless it is disabled.
func (p *Plugin) Init(proxy PluginProxy) {
	p.proxy = proxy

	if !p.PluginIsDisable() {
		p.LoadPlugin()
	}
}

// Loaded reports whether the primary widget has been constructed.
func (p *Plugin) Loaded() bool {
	return p.loaded
}

// PluginIsDisable reports whether the user removed the item from the dock.
// The plugin is enabled unless the "enable" setting says otherwise.
func (p *Plugin) PluginIsDisable() bool {
	return !ToBool(p.proxy.GetValue(p, stateKey, true), true)
}

// PluginStateSwitched flips the "enable" setting and applies the new state.
func (p *Plugin) PluginStateSwitched() {
	p.proxy.SaveValue(p, stateKey, p.PluginIsDisable())

	p.RefreshPluginItemsVisible()
}

func (p *Plugin) PluginSettingsChanged() {
	p.RefreshPluginItemsVisible()
}

// ItemCommand toggles the desktop when the plugin item is activated. It never
// asks the host to run a command line, so the result is always empty.
func (p *Plugin) ItemCommand(itemKey string) string {
	if itemKey == PluginName {
		p.launcher.Launch()
	}

	return ""
}

// ItemContextMenu returns the menu with the "Show Desktop" and "Undock"
// entries for the plugin item, and an empty string for any other key.
func (p *Plugin) ItemContextMenu(itemKey string) string {
	if itemKey != PluginName {
		return ""
	}

	menu := &Menu{
		Items: []MenuItem{
			{
				ID:       MenuIDShowDesktop,
				Text:     p.tr.Tr(msgShowDesktop),
				IsActive: true,
			},
			{
				ID:       MenuIDRemove,
				Text:     p.tr.Tr(msgUndock),
				IsActive: true,
			},
		},
		Checkable:   false,
		SingleCheck: false,
	}

	data, err := menu.Encode()
	if err != nil {
		return ""
	}

	return data
}

// InvokedMenuItem handles a click on an entry of the context menu.
func (p *Plugin) InvokedMenuItem(itemKey, menuID string, checked bool) {
	switch menuID {
	case MenuIDShowDesktop:
		p.launcher.Launch()
	case MenuIDRemove:
		p.PluginStateSwitched()
	}
}

func (p *Plugin) RefreshIcon(itemKey string) {
	if itemKey != PluginName || p.widget == nil {
		return
	}

	p.widget.RefreshIcon()
}

func (p *Plugin) ItemSortKey(itemKey string) int {
	return ToInt(p.proxy.GetValue(p, sortKey(itemKey), 1), 1)
}

func (p *Plugin) SetSortKey(itemKey string, order int) {
	p.proxy.SaveValue(p, sortKey(itemKey), order)
}

func (p *Plugin) Type() PluginType {
	return PluginTypeFixed
}

func (p *Plugin) Flags() PluginFlag {
	return FlagTypeFixed | FlagAttributeForceDock
}

// UpdateVisible adds the item to the dock or removes it, according to the
// "enable" setting.
func (p *Plugin) UpdateVisible() {
	if p.PluginIsDisable() {
		p.proxy.ItemRemoved(p, PluginName)
	} else {
		p.proxy.ItemAdded(p, PluginName)
	}
}

// LoadPlugin constructs the primary widget and adds the item to the dock.
// Calls after the first one do nothing.
func (p *Plugin) LoadPlugin() {
	if p.loaded {
		return
	}

	p.loaded = true
	p.widget = p.newWidget()

	p.UpdateVisible()
}

// RefreshPluginItemsVisible brings the dock in line with the "enable"
// setting, constructing the widget if the plugin is enabled for the first
// time.
func (p *Plugin) RefreshPluginItemsVisible() {
	if p.PluginIsDisable() {
		p.proxy.ItemRemoved(p, PluginName)
		return
	}

	if !p.loaded {
		p.LoadPlugin()
		return
	}

	p.UpdateVisible()
}
