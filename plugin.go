package showdesktop

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// PluginType is the layout class of a dock plugin.
type PluginType int

// Dock plugin types.
const (
	// Items of the plugin can be reordered among other normal items.
	PluginTypeNormal PluginType = iota

	// Items of the plugin are pinned to a fixed position in the dock.
	PluginTypeFixed
)

func (t PluginType) String() string {
	switch t {
	case PluginTypeFixed:
		return "Fixed"
	default:
		return "Normal"
	}
}

// PluginFlag classifies a plugin for the host's layout logic.
type PluginFlag uint32

// Plugin flags. Type flags describe the area of the dock the plugin lives in,
// attribute flags describe how the user may interact with it.
const (
	FlagTypeNone   PluginFlag = 0x1
	FlagTypeTool   PluginFlag = 0x2
	FlagTypeSystem PluginFlag = 0x4
	FlagTypeTray   PluginFlag = 0x8
	FlagTypeFixed  PluginFlag = 0x10

	FlagAttributeCanDrag    PluginFlag = 0x800
	FlagAttributeCanInsert  PluginFlag = 0x1000
	FlagAttributeCanSetting PluginFlag = 0x2000
	FlagAttributeForceDock  PluginFlag = 0x4000
)

// Has reports whether all bits of other are set in f.
func (f PluginFlag) Has(other PluginFlag) bool {
	return f&other == other
}

// DisplayMode is the display mode of the dock. It is part of the settings key
// under which item positions are stored.
type DisplayMode int

// Dock display modes.
const (
	DisplayModeFashion DisplayMode = iota
	DisplayModeEfficient
)

// PluginsItem is the method set a dock host expects from every plugin.
//
// All methods are called from the host's event loop. Methods that receive an
// item key must tolerate keys that do not belong to the plugin.
type PluginsItem interface {
	// PluginName returns the identifier of the plugin. It is also used as the
	// settings owner.
	PluginName() string

	// PluginDisplayName returns the localized, human-readable plugin name.
	PluginDisplayName() string

	// Init is called once after the plugin is loaded.
	Init(proxy PluginProxy)

	// ItemWidget returns the widget of the item. The result is nil if the
	// widget has not been constructed yet.
	ItemWidget(itemKey string) Widget

	// ItemTipsWidget returns the tooltip widget of the item.
	ItemTipsWidget(itemKey string) TipsWidget

	// ItemCommand is called when the item is activated. A non-empty result is
	// a command line the host should run.
	ItemCommand(itemKey string) string

	// ItemContextMenu returns the JSON description of the item menu, or an
	// empty string if the item has no menu.
	ItemContextMenu(itemKey string) string

	// InvokedMenuItem is called when an entry of the item menu is clicked.
	InvokedMenuItem(itemKey, menuID string, checked bool)

	// RefreshIcon asks the item to reload its icon.
	RefreshIcon(itemKey string)

	// ItemSortKey returns the position of the item in the dock.
	ItemSortKey(itemKey string) int

	// SetSortKey stores the position of the item in the dock.
	SetSortKey(itemKey string, order int)

	// PluginSettingsChanged notifies the plugin that its persisted settings
	// were changed outside of the plugin.
	PluginSettingsChanged()

	Type() PluginType
	Flags() PluginFlag
}

// PluginProxy is the host side of the plugin contract. The host owns it; the
// plugin only keeps a reference.
type PluginProxy interface {
	// GetValue returns the value stored under key for owner, or def if there
	// is no such value.
	GetValue(owner PluginsItem, key string, def any) any

	// SaveValue stores value under key for owner.
	SaveValue(owner PluginsItem, key string, value any)

	// ItemAdded asks the host to show the item in the dock.
	ItemAdded(owner PluginsItem, itemKey string)

	// ItemRemoved asks the host to remove the item from the dock.
	ItemRemoved(owner PluginsItem, itemKey string)
}

// ToBool converts a stored settings value to a boolean.
//
// Booleans are returned as is, numbers are true when non-zero, and strings are
// parsed with [strconv.ParseBool] ("true", "1", "T", ...). A nil value, a
// value of any other type, or a string that cannot be parsed yields def.
func ToBool(value any, def bool) bool {
	if value == nil {
		return def
	}

	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}

	b, err := cast.ToBoolE(value)
	if err != nil {
		return def
	}

	return b
}

// ToInt converts a stored settings value to an integer.
//
// Integers are returned as is, floats are truncated, booleans are 0 or 1 and
// strings are parsed as integers. A nil value, a value of any other type, a
// string that cannot be parsed, or a float out of range yields def.
func ToInt(value any, def int) int {
	switch v := value.(type) {
	case nil:
		return def
	case string:
		value = strings.TrimSpace(v)
	case float32:
		if !floatFitsInt(float64(v)) {
			return def
		}
	case float64:
		if !floatFitsInt(v) {
			return def
		}
	}

	n, err := cast.ToIntE(value)
	if err != nil {
		return def
	}

	return n
}

func floatFitsInt(v float64) bool {
	return !math.IsNaN(v) && v < math.MaxInt && v >= math.MinInt
}
