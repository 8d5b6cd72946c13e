package tray

import (
	"slices"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/showdesktop"
)

// rootID is the ID of the invisible root node of every menu layout.
const rootID int32 = 0

// LayoutNode is a node of a com.canonical.dbusmenu layout.
type LayoutNode struct {
	ID         int32
	Properties map[string]any
	Children   []*LayoutNode

	// Identifier of the plugin menu entry the node was built from. Empty for
	// the root node.
	menuID string
}

// dbusLayout is the wire form of [LayoutNode], (ia{sv}av).
type dbusLayout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// dbusGroupProperties is the wire form of properties of a single node,
// (ia{sv}).
type dbusGroupProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// NewLayoutFromMenu builds a layout from a plugin context menu. Entries are
// numbered from 1 in the order they appear in the menu.
func NewLayoutFromMenu(menu *showdesktop.Menu) *LayoutNode {
	root := &LayoutNode{
		ID: rootID,
		Properties: map[string]any{
			"children-display": "submenu",
		},
		Children: make([]*LayoutNode, 0, len(menu.Items)),
	}

	for idx, item := range menu.Items {
		props := map[string]any{
			"label":   item.Text,
			"enabled": item.IsActive,
			"visible": true,
		}

		if menu.Checkable {
			props["toggle-type"] = "checkmark"
			if menu.SingleCheck {
				props["toggle-type"] = "radio"
			}

			props["toggle-state"] = int32(0)
			if item.Checked {
				props["toggle-state"] = int32(1)
			}
		}

		root.Children = append(root.Children, &LayoutNode{
			ID:         int32(idx + 1),
			Properties: props,
			Children:   []*LayoutNode{},
			menuID:     item.ID,
		})
	}

	return root
}

// Find returns the node with the given ID within the subtree of n.
func (n *LayoutNode) Find(id int32) (*LayoutNode, bool) {
	if n.ID == id {
		return n, true
	}

	for _, child := range n.Children {
		if node, ok := child.Find(id); ok {
			return node, true
		}
	}

	return nil, false
}

// MenuID returns the identifier of the plugin menu entry of the node.
func (n *LayoutNode) MenuID() string {
	return n.menuID
}

// Checked reports whether the node is a checked toggle.
func (n *LayoutNode) Checked() bool {
	state, ok := n.Properties["toggle-state"].(int32)
	return ok && state == 1
}

// toDBus converts the subtree of n to its wire form.
//
// recursionDepth limits the number of levels of children: -1 delivers all
// levels, 0 delivers no children. propertyNames filters node properties; an
// empty list delivers all of them.
func (n *LayoutNode) toDBus(recursionDepth int32, propertyNames []string) dbusLayout {
	layout := dbusLayout{
		ID:         n.ID,
		Properties: n.dbusProperties(propertyNames),
		Children:   []dbus.Variant{},
	}

	if recursionDepth == 0 {
		return layout
	}

	for _, child := range n.Children {
		layout.Children = append(layout.Children, dbus.MakeVariant(child.toDBus(recursionDepth-1, propertyNames)))
	}

	return layout
}

func (n *LayoutNode) dbusProperties(propertyNames []string) map[string]dbus.Variant {
	props := make(map[string]dbus.Variant, len(n.Properties))

	for key, value := range n.Properties {
		if len(propertyNames) > 0 && !slices.Contains(propertyNames, key) {
			continue
		}

		props[key] = dbus.MakeVariant(value)
	}

	return props
}
