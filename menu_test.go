package showdesktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMenu(t *testing.T) {
	t.Run("empty_document_is_empty_menu", func(t *testing.T) {
		menu, err := ParseMenu("")

		require.NoError(t, err)
		assert.Empty(t, menu.Items)
	})

	t.Run("malformed_document", func(t *testing.T) {
		_, err := ParseMenu(`{"items": [`)

		assert.ErrorContains(t, err, "parse menu")
	})

	t.Run("checkable_menu", func(t *testing.T) {
		menu, err := ParseMenu(`{
			"items": [
				{"itemId": "a", "itemText": "A", "isActive": true, "checked": true},
				{"itemId": "b", "itemText": "B", "isActive": false}
			],
			"checkableMenu": true,
			"singleCheck": true
		}`)

		require.NoError(t, err)
		assert.True(t, menu.Checkable)
		assert.True(t, menu.SingleCheck)

		a, ok := menu.Find("a")
		require.True(t, ok)
		assert.True(t, a.Checked)

		b, ok := menu.Find("b")
		require.True(t, ok)
		assert.False(t, b.IsActive)

		_, ok = menu.Find("c")
		assert.False(t, ok)
	})
}

func TestMenu_EncodeOmitsUncheckedState(t *testing.T) {
	menu := &Menu{Items: []MenuItem{{ID: MenuIDRemove, Text: "Undock", IsActive: true}}}

	data, err := menu.Encode()

	require.NoError(t, err)
	assert.NotContains(t, data, "checked\"")
	assert.Contains(t, data, `"checkableMenu": false`)
	assert.Contains(t, data, `"itemId": "remove"`)
}
