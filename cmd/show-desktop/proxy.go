package main

import (
	"github.com/rs/zerolog"

	"github.com/shelepuginivan/showdesktop"
	"github.com/shelepuginivan/showdesktop/settings"
)

// offlineProxy gives a plugin access to its settings outside of a running
// dock. Items are never shown.
type offlineProxy struct {
	store  *settings.Store
	logger zerolog.Logger
}

func newOfflineProxy(store *settings.Store, logger zerolog.Logger) *offlineProxy {
	return &offlineProxy{store: store, logger: logger}
}

func (p *offlineProxy) GetValue(owner showdesktop.PluginsItem, key string, def any) any {
	return p.store.Value(owner.PluginName(), key, def)
}

func (p *offlineProxy) SaveValue(owner showdesktop.PluginsItem, key string, value any) {
	if err := p.store.SetValue(owner.PluginName(), key, value); err != nil {
		p.logger.Error().Err(err).Str("key", key).Msg("failed to save value")
	}
}

func (p *offlineProxy) ItemAdded(owner showdesktop.PluginsItem, itemKey string) {}

func (p *offlineProxy) ItemRemoved(owner showdesktop.PluginsItem, itemKey string) {}
