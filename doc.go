// Package showdesktop implements the "Show Desktop" dock plugin. The plugin
// places a single item in the dock which, when activated, toggles desktop
// visibility by launching the external desktop-toggle executable.
//
// # Usage
//
// The plugin is driven by a dock host through two contracts:
//   - [PluginsItem] is the method set every dock plugin provides. [Plugin]
//     implements it.
//   - [PluginProxy] is what the host hands to the plugin on [Plugin.Init]. It
//     stores plugin settings and receives add/remove notifications for dock
//     items.
//
// The plugin persists an "enable" flag through the proxy. While the flag is
// true, the item is present in the dock; the "Undock" context menu entry
// flips it. The primary widget is built lazily the first time the plugin is
// enabled and kept for the lifetime of the process.
//
// See package tray for a host that publishes plugins on the session bus.
package showdesktop
