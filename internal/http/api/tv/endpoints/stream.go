package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// stream attaches a screen to a display. The display is mounted for as long
// as at least one stream (or pin) holds it. The optional "start" query
// parameter picks the first item when this stream mounts the display.
func (t *DisplayController) stream(ctx *gin.Context) {
	name := ctx.Param("name")
	if !display.ValidName(name) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": display.ErrInvalidName.Error()})
		return
	}
	var hint *int
	if raw := ctx.Query("start"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "start must be an integer"})
			return
		}
		hint = &n
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("display", name).Msg("[stream] websocket upgrade failed")
		return
	}

	d, err := t.manager.Open(ctx.Request.Context(), name, hint)
	if err != nil {
		log.Error().Err(err).Str("display", name).Msg("[stream] mount failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer t.manager.Release(name)

	c := newStreamClient(conn, d)
	unsubscribe := d.Subscribe(c.push)
	defer unsubscribe()
	c.push(d.State())

	telemetry.StreamClients.Inc()
	defer telemetry.StreamClients.Dec()
	c.logger.Info().Str("remote", ctx.ClientIP()).Msg("[stream] screen attached")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	c.readPump()
	close(c.done)
	wg.Wait()
	c.logger.Info().Msg("[stream] screen detached")
}

type streamClient struct {
	conn    *websocket.Conn
	display *display.Display
	logger  zerolog.Logger

	mu     sync.Mutex
	latest *display.State

	kick    chan struct{}
	replies chan packets.StreamMessage
	done    chan struct{}
}

func newStreamClient(conn *websocket.Conn, d *display.Display) *streamClient {
	return &streamClient{
		conn:    conn,
		display: d,
		logger:  log.With().Str("display", d.Name()).Logger(),
		kick:    make(chan struct{}, 1),
		replies: make(chan packets.StreamMessage, 8),
		done:    make(chan struct{}),
	}
}

// push keeps only the newest state; a slow screen skips intermediate ones.
func (c *streamClient) push(st display.State) {
	c.mu.Lock()
	if c.latest != nil && st.Version < c.latest.Version {
		c.mu.Unlock()
		return
	}
	c.latest = &st
	c.mu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *streamClient) reply(msg packets.StreamMessage) {
	select {
	case c.replies <- msg:
	default:
		c.logger.Warn().Str("type", msg.Type).Msg("[stream] reply dropped, screen is not reading")
	}
}

func (c *streamClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("[stream] read error")
			}
			return
		}

		var ev display.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			c.reply(packets.StreamMessage{Type: packets.StreamError, Error: "malformed event"})
			continue
		}
		changed, err := c.display.Handle(context.Background(), ev)
		if err != nil {
			c.reply(packets.StreamMessage{Type: packets.StreamError, Error: err.Error()})
			continue
		}
		c.reply(packets.StreamMessage{Type: packets.StreamAck, Changed: &changed})
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case <-c.display.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "display unmounted"))
			return
		case <-c.kick:
			c.mu.Lock()
			st := c.latest
			c.mu.Unlock()
			if st == nil {
				continue
			}
			if err := c.write(packets.StreamMessage{Type: packets.StreamState, State: st}); err != nil {
				return
			}
		case msg := <-c.replies:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) write(msg packets.StreamMessage) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug().Err(err).Msg("[stream] write failed")
		return err
	}
	return nil
}
