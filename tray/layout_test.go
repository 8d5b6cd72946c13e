package tray

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/showdesktop"
)

func pluginMenu(t *testing.T) *showdesktop.Menu {
	t.Helper()

	plugin := showdesktop.New(showdesktop.WithTranslator(showdesktop.NewTranslator("C")))

	menu, err := showdesktop.ParseMenu(plugin.ItemContextMenu(showdesktop.PluginName))
	require.NoError(t, err)

	return menu
}

func TestNewLayoutFromMenu(t *testing.T) {
	root := NewLayoutFromMenu(pluginMenu(t))

	assert.Equal(t, rootID, root.ID)
	assert.Equal(t, "submenu", root.Properties["children-display"])
	require.Len(t, root.Children, 2)

	showDesktop := root.Children[0]
	assert.Equal(t, int32(1), showDesktop.ID)
	assert.Equal(t, showdesktop.MenuIDShowDesktop, showDesktop.MenuID())
	assert.Equal(t, "Show Desktop", showDesktop.Properties["label"])
	assert.Equal(t, true, showDesktop.Properties["enabled"])
	assert.NotContains(t, showDesktop.Properties, "toggle-type")

	remove := root.Children[1]
	assert.Equal(t, int32(2), remove.ID)
	assert.Equal(t, showdesktop.MenuIDRemove, remove.MenuID())
	assert.Equal(t, "Undock", remove.Properties["label"])
}

func TestNewLayoutFromMenu_Checkable(t *testing.T) {
	root := NewLayoutFromMenu(&showdesktop.Menu{
		Items: []showdesktop.MenuItem{
			{ID: "a", Text: "A", IsActive: true, Checked: true},
			{ID: "b", Text: "B", IsActive: true},
		},
		Checkable:   true,
		SingleCheck: true,
	})

	a, ok := root.Find(1)
	require.True(t, ok)
	assert.Equal(t, "radio", a.Properties["toggle-type"])
	assert.True(t, a.Checked())

	b, ok := root.Find(2)
	require.True(t, ok)
	assert.False(t, b.Checked())

	_, ok = root.Find(3)
	assert.False(t, ok)
}

func TestLayoutNode_ToDBus(t *testing.T) {
	root := NewLayoutFromMenu(pluginMenu(t))

	t.Run("all_levels", func(t *testing.T) {
		layout := root.toDBus(-1, nil)

		assert.Equal(t, rootID, layout.ID)
		require.Len(t, layout.Children, 2)

		child, ok := layout.Children[1].Value().(dbusLayout)
		require.True(t, ok)
		assert.Equal(t, int32(2), child.ID)
		assert.Equal(t, dbus.MakeVariant("Undock"), child.Properties["label"])
		assert.Len(t, child.Properties, 3)
	})

	t.Run("no_recursion", func(t *testing.T) {
		layout := root.toDBus(0, nil)

		assert.Empty(t, layout.Children)
	})

	t.Run("filtered_properties", func(t *testing.T) {
		layout := root.toDBus(1, []string{"label"})

		child, ok := layout.Children[0].Value().(dbusLayout)
		require.True(t, ok)
		assert.Equal(t, map[string]dbus.Variant{"label": dbus.MakeVariant("Show Desktop")}, child.Properties)
		assert.Empty(t, layout.Properties)
	})
}

func TestDBusLayoutSignature(t *testing.T) {
	root := NewLayoutFromMenu(pluginMenu(t))

	assert.Equal(t, "(ia{sv}av)", dbus.SignatureOf(root.toDBus(-1, nil)).String())
	assert.Equal(t, "(sa(iiay)ss)", dbus.SignatureOf(NewToolTip("Show Desktop")).String())
}
