package config

import "sync/atomic"

// Holder publishes the current config to readers while reloads swap it.
type Holder struct {
	p atomic.Pointer[Config]
}

func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.Set(cfg)
	return h
}

func (h *Holder) Get() *Config { return h.p.Load() }

func (h *Holder) Set(cfg *Config) { h.p.Store(cfg) }

// ClickChannelID is the click channel used by the voice add command.
func (h *Holder) ClickChannelID() string {
	if cfg := h.Get(); cfg != nil && len(cfg.ClickChannels) > 0 {
		return cfg.ClickChannels[0].ChannelID
	}
	return ""
}

func (h *Holder) CommandChannelAllowed(channelID string) bool {
	cfg := h.Get()
	return cfg != nil && cfg.CommandChannelAllowed(channelID)
}
