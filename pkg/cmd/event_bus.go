package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/episodic/pkg/channels/gochannel"
	"github.com/dukex/episodic/pkg/channels/kafka"
	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/eventbus"
)

// ErrUnsupportedEventBus is returned for an unknown event bus provider.
var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewEventBus creates the lifecycle event bus selected by cfg.
//
//nolint:ireturn // the provider decides the implementation
func NewEventBus(cfg config.EventBusConfig, logger *slog.Logger) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch cfg.Provider {
	case "", "none":
		return eventbus.NoopEventBus{}, nil
	case "gochannel":
		pub, sub := gochannel.CreateChannel(adapter)

		return eventbus.NewWatermillEventBus(pub, sub, cfg.Topic), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, cfg.Brokers, "episodic")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, cfg.Topic), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, cfg.Provider)
	}
}
