package showdesktop

import (
	"encoding/json"
	"fmt"
)

// Context menu entries of the plugin.
const (
	MenuIDShowDesktop = "show-desktop"
	MenuIDRemove      = "remove"
)

// MenuItem is a single entry of a context menu.
type MenuItem struct {
	// Identifier passed back to [PluginsItem.InvokedMenuItem] when the entry
	// is clicked.
	ID string `json:"itemId"`

	// Label of the entry.
	Text string `json:"itemText"`

	// Whether the entry can be clicked.
	IsActive bool `json:"isActive"`

	// Whether the entry is checked. Only meaningful for checkable menus.
	Checked bool `json:"checked,omitempty"`
}

// Menu is the description of a context menu that plugins return from
// [PluginsItem.ItemContextMenu].
type Menu struct {
	Items []MenuItem `json:"items"`

	// Whether entries of the menu can be checked.
	Checkable bool `json:"checkableMenu"`

	// Whether at most one entry can be checked at a time.
	SingleCheck bool `json:"singleCheck"`
}

// Encode returns the JSON document hosts expect from
// [PluginsItem.ItemContextMenu].
func (m *Menu) Encode() (string, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode menu: %w", err)
	}

	return string(data), nil
}

// ParseMenu decodes a context menu document. An empty document is an empty
// menu.
func ParseMenu(data string) (*Menu, error) {
	menu := &Menu{}

	if data == "" {
		return menu, nil
	}

	if err := json.Unmarshal([]byte(data), menu); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}

	return menu, nil
}

// Find returns the entry with the given identifier.
func (m *Menu) Find(id string) (MenuItem, bool) {
	for _, item := range m.Items {
		if item.ID == id {
			return item, true
		}
	}

	return MenuItem{}, false
}
