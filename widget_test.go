package showdesktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShowDesktopWidget_DefaultsToLightIcon(t *testing.T) {
	w := NewShowDesktopWidget(nil)

	assert.Equal(t, "deepin-toggle-desktop", w.IconName())
	assert.False(t, w.Visible())
}

func TestShowDesktopWidget_RefreshIconFollowsTheme(t *testing.T) {
	theme := ThemeLight
	w := NewShowDesktopWidget(func() Theme { return theme })

	var notified []string
	w.OnIconChanged(func(iconName string) {
		notified = append(notified, iconName)
	})

	theme = ThemeDark
	w.RefreshIcon()

	assert.Equal(t, "deepin-toggle-desktop-dark", w.IconName())

	theme = ThemeLight
	w.RefreshIcon()

	assert.Equal(t, []string{"deepin-toggle-desktop-dark", "deepin-toggle-desktop"}, notified)

	// A nil callback detaches the listener.
	w.OnIconChanged(nil)
	w.RefreshIcon()
	assert.Len(t, notified, 2)
}

func TestShowDesktopWidget_SetVisible(t *testing.T) {
	w := NewShowDesktopWidget(nil)

	w.SetVisible(true)
	assert.True(t, w.Visible())

	w.SetVisible(false)
	assert.False(t, w.Visible())
}
