package showdesktop

import "sync"

// Widget is the visual representation of a dock item. The host renders it.
type Widget interface {
	// SetVisible shows or hides the widget.
	SetVisible(visible bool)

	// Visible reports whether the widget is shown.
	Visible() bool

	// RefreshIcon reloads the icon of the widget, e.g. after the icon theme
	// was changed.
	RefreshIcon()

	// IconName returns a [Freedesktop-compliant] icon name of the widget.
	//
	// [Freedesktop-compliant]: https://specifications.freedesktop.org/icon-naming-spec/latest/
	IconName() string
}

// TipsWidget is a text label shown when the item is hovered.
type TipsWidget interface {
	SetText(text string)
	Text() string
	SetObjectName(name string)
	ObjectName() string
	SetAccessibleName(name string)
	AccessibleName() string
	SetVisible(visible bool)
	Visible() bool
}

// Theme is the palette type of the desktop.
type Theme int

// Desktop palette types.
const (
	ThemeLight Theme = iota
	ThemeDark
)

// ThemeFunc reports the current palette type of the desktop.
type ThemeFunc func() Theme

const showDesktopIcon = "deepin-toggle-desktop"

// ShowDesktopWidget is the primary widget of the plugin. It keeps track of
// the icon that represents the item, which depends on the desktop palette.
type ShowDesktopWidget struct {
	mu       sync.Mutex
	visible  bool
	iconName string
	theme    ThemeFunc
	onIcon   func(iconName string)
}

// NewShowDesktopWidget returns a new [ShowDesktopWidget]. If theme is nil,
// the light palette is assumed.
func NewShowDesktopWidget(theme ThemeFunc) *ShowDesktopWidget {
	if theme == nil {
		theme = func() Theme { return ThemeLight }
	}

	w := &ShowDesktopWidget{
		theme:  theme,
		onIcon: func(string) {},
	}
	w.iconName = w.resolveIcon()

	return w
}

// OnIconChanged registers callback that runs whenever the icon is refreshed.
//
// Hosts should redraw the item (or notify their clients) when the callback
// is called.
func (w *ShowDesktopWidget) OnIconChanged(callback func(iconName string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if callback == nil {
		callback = func(string) {}
	}

	w.onIcon = callback
}

func (w *ShowDesktopWidget) SetVisible(visible bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.visible = visible
}

func (w *ShowDesktopWidget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.visible
}

func (w *ShowDesktopWidget) IconName() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.iconName
}

// RefreshIcon resolves the icon against the current palette and runs the
// callback registered with [ShowDesktopWidget.OnIconChanged].
func (w *ShowDesktopWidget) RefreshIcon() {
	w.mu.Lock()
	w.iconName = w.resolveIcon()
	iconName, callback := w.iconName, w.onIcon
	w.mu.Unlock()

	callback(iconName)
}

func (w *ShowDesktopWidget) resolveIcon() string {
	if w.theme() == ThemeDark {
		return showDesktopIcon + "-dark"
	}

	return showDesktopIcon
}

// Tips is a plain [TipsWidget].
type Tips struct {
	mu             sync.Mutex
	text           string
	objectName     string
	accessibleName string
	visible        bool
}

func NewTips() *Tips {
	return &Tips{}
}

func (t *Tips) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.text = text
}

func (t *Tips) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.text
}

func (t *Tips) SetObjectName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.objectName = name
}

func (t *Tips) ObjectName() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.objectName
}

func (t *Tips) SetAccessibleName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accessibleName = name
}

func (t *Tips) AccessibleName() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.accessibleName
}

func (t *Tips) SetVisible(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.visible = visible
}

func (t *Tips) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.visible
}
