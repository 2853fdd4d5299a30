// Package transport provides the delivery providers selectable in the
// transport configuration block.
package transport

import (
	"github.com/kilianp07/teamcast/core/factory"
	coretransport "github.com/kilianp07/teamcast/core/transport"
)

var registry = factory.NewRegistry[coretransport.Transport]("transport")

func init() {
	_ = registry.Register("whatsapp", func(conf map[string]any) (coretransport.Transport, error) {
		var cfg WhatsAppConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewWhatsApp(cfg)
	})
	_ = registry.Register("mqtt", func(conf map[string]any) (coretransport.Transport, error) {
		var cfg MQTTConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewMQTT(cfg)
	})
	_ = registry.Register("mock", func(conf map[string]any) (coretransport.Transport, error) {
		var cfg MockConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewMock(cfg), nil
	})
}

// New builds the transport described by cfg.
func New(cfg factory.ModuleConfig) (coretransport.Transport, error) {
	return registry.Create(cfg)
}

// Types lists the available transport types.
func Types() []string { return registry.Types() }
