package changefeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSFeed carries change notifications on a NATS subject.
type NATSFeed struct {
	conn   *nats.Conn
	nodeID string
	logger zerolog.Logger
}

func NewNATSFeed(url, nodeID string, logger zerolog.Logger) (*NATSFeed, error) {
	conn, err := nats.Connect(url,
		nats.Name("vibescreen-"+nodeID),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("[changefeed] nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("[changefeed] nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info().Str("url", url).Msg("[changefeed] nats feed connected")
	return &NATSFeed{conn: conn, nodeID: nodeID, logger: logger}, nil
}

func (nf *NATSFeed) Subscribe(_ context.Context, onChange func()) (Unsubscribe, error) {
	sub, err := nf.conn.Subscribe(Channel, func(msg *nats.Msg) {
		if _, err := unmarshalMessage(msg.Data); err != nil {
			nf.logger.Warn().Err(err).Msg("[changefeed] malformed nats message, refreshing anyway")
		}
		onChange()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				nf.logger.Debug().Err(err).Msg("[changefeed] nats unsubscribe")
			}
		})
	}, nil
}

func (nf *NATSFeed) Publish(_ context.Context) error {
	data, err := marshalMessage(nf.nodeID)
	if err != nil {
		return err
	}
	if err := nf.conn.Publish(Channel, data); err != nil {
		return fmt.Errorf("publish %s: %w", Channel, err)
	}
	return nil
}

func (nf *NATSFeed) Close() error {
	return nf.conn.Drain()
}

var (
	_ Feed     = (*NATSFeed)(nil)
	_ Notifier = (*NATSFeed)(nil)
)
