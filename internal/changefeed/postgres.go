package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// PostgresFeed listens on the NOTIFY channel fired by the content_items
// trigger. One listener connection is shared by all subscribers.
type PostgresFeed struct {
	dsn    string
	logger zerolog.Logger

	mu       sync.Mutex
	listener *pq.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	fanout   *Memory
}

func NewPostgresFeed(dsn string, logger zerolog.Logger) *PostgresFeed {
	return &PostgresFeed{dsn: dsn, logger: logger, fanout: NewMemory()}
}

func (p *PostgresFeed) Subscribe(ctx context.Context, onChange func()) (Unsubscribe, error) {
	if err := p.ensureListening(); err != nil {
		return nil, err
	}
	return p.fanout.Subscribe(ctx, onChange)
}

func (p *PostgresFeed) ensureListening() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return nil
	}

	l := pq.NewListener(p.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			p.logger.Warn().Err(err).Msg("[changefeed] postgres listener connection lost")
		case pq.ListenerEventReconnected:
			p.logger.Info().Msg("[changefeed] postgres listener reconnected")
		}
	})
	if err := l.Listen(Channel); err != nil {
		_ = l.Close()
		return fmt.Errorf("listen %s: %w", Channel, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.listener = l
	p.cancel = cancel

	p.wg.Add(1)
	go p.receive(ctx, l)

	p.logger.Info().Str("channel", Channel).Msg("[changefeed] listening for postgres notifications")
	return nil
}

func (p *PostgresFeed) receive(ctx context.Context, l *pq.Listener) {
	defer p.wg.Done()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-l.Notify:
			if !ok {
				return
			}
			// A nil notification follows a reconnect; changes may have been
			// missed while disconnected, so it counts as a change too.
			if n == nil {
				p.logger.Debug().Msg("[changefeed] listener reconnected, forcing refresh")
			}
			_ = p.fanout.Publish(ctx)
		case <-ping.C:
			if err := l.Ping(); err != nil {
				p.logger.Warn().Err(err).Msg("[changefeed] postgres listener ping failed")
			}
		}
	}
}

func (p *PostgresFeed) Close() error {
	p.mu.Lock()
	l, cancel := p.listener, p.cancel
	p.listener, p.cancel = nil, nil
	p.mu.Unlock()

	if l == nil {
		return nil
	}
	cancel()
	err := l.Close()
	p.wg.Wait()
	return err
}

var _ Feed = (*PostgresFeed)(nil)
