// Package mqtt pushes display state to devices over an MQTT broker and
// collects the media events they report back.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	stateTopicFmt  = "displays/%s/state"
	eventsTopicFmt = "displays/%s/events"
	eventsFilter   = "displays/+/events"

	qos          = 1
	waitTimeout  = 5 * time.Second
	disconnectMs = 250
)

func StateTopic(display string) string  { return fmt.Sprintf(stateTopicFmt, display) }
func EventsTopic(display string) string { return fmt.Sprintf(eventsTopicFmt, display) }

// DisplayFromTopic extracts the display name from an events topic.
func DisplayFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "displays" || parts[2] != "events" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// EventHandler receives the raw payload a device sent for a display.
type EventHandler func(display string, payload []byte)

type Client struct {
	client mqtt.Client

	mu      sync.RWMutex
	handler EventHandler
}

// Connect dials the broker. The events subscription is restored on every
// reconnect once SubscribeEvents has been called.
func Connect(brokerURL, clientID string) (*Client, error) {
	c := &Client{}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("[mqtt] connected")
		if c.currentHandler() != nil {
			if err := c.subscribe(); err != nil {
				log.Error().Err(err).Msg("[mqtt] resubscribe failed")
			}
		}
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("[mqtt] connection lost")
	}

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(waitTimeout) {
		c.client.Disconnect(disconnectMs)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return c, nil
}

// PublishState publishes a display's state as a retained message so a device
// that connects later gets the current state at once.
func (c *Client) PublishState(display string, state any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", display, err)
	}
	return c.publish(StateTopic(display), payload, true)
}

// ClearState removes the retained state of an unmounted display.
func (c *Client) ClearState(display string) error {
	return c.publish(StateTopic(display), nil, true)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(waitTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SubscribeEvents routes every device event to handler.
func (c *Client) SubscribeEvents(handler EventHandler) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
	return c.subscribe()
}

func (c *Client) subscribe() error {
	token := c.client.Subscribe(eventsFilter, qos, func(_ mqtt.Client, msg mqtt.Message) {
		c.dispatch(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(waitTimeout) {
		return fmt.Errorf("subscribe %s: timed out", eventsFilter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventsFilter, err)
	}
	log.Debug().Str("topic", eventsFilter).Msg("[mqtt] subscribed")
	return nil
}

func (c *Client) currentHandler() EventHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

func (c *Client) dispatch(topic string, payload []byte) {
	display, ok := DisplayFromTopic(topic)
	if !ok {
		log.Warn().Str("topic", topic).Msg("[mqtt] event on unexpected topic")
		return
	}
	if h := c.currentHandler(); h != nil {
		h(display, payload)
	}
}

func (c *Client) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectMs)
	}
	log.Info().Msg("[mqtt] disconnected")
}
