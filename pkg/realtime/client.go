package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/builder"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
)

const (
	TypeSectionEdit   = "section.edit"
	TypeSectionQueued = "section.queued"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeError         = "error"
)

// Inbound is a message sent by the builder.
type Inbound struct {
	Type    string          `json:"type"`
	Section *models.Section `json:"section,omitempty"`
}

// Outbound is a reply to an Inbound message. Bus events are sent as they are.
type Outbound struct {
	Type      string           `json:"type"`
	SectionID models.SectionID `json:"section_id,omitzero"`
	Error     string           `json:"error,omitempty"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	siteID models.SiteID
	userID models.UserID
	logger zerolog.Logger

	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, siteID models.SiteID, userID models.UserID) *client {
	return &client{
		hub:    h,
		conn:   conn,
		siteID: siteID,
		userID: userID,
		logger: h.logger.With().Str("site_id", siteID.String()).Logger(),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue never blocks; it reports false when the session's buffer is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Debug().Err(err).Msg("builder session read failed")
			}
			return
		}

		reply := c.handle(data)
		out, err := json.Marshal(reply)
		if err != nil {
			c.logger.Error().Err(err).Msg("failed to encode reply")
			continue
		}
		if !c.enqueue(out) {
			c.logger.Warn().Str("type", reply.Type).Msg("dropping reply, session is full")
		}
	}
}

func (c *client) handle(data []byte) Outbound {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Outbound{Type: TypeError, Error: "invalid_message"}
	}

	switch msg.Type {
	case TypePing:
		return Outbound{Type: TypePong}
	case TypeSectionEdit:
		return c.edit(msg.Section)
	default:
		return Outbound{Type: TypeError, Error: "unknown_type"}
	}
}

func (c *client) edit(section *models.Section) Outbound {
	if section == nil || section.ID.IsZero() {
		return Outbound{Type: TypeError, Error: "invalid_section"}
	}
	if c.hub.readOnly() {
		return Outbound{Type: TypeError, SectionID: section.ID, Error: "read_only"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	existing, err := c.hub.sections.GetSection(ctx, section.ID)
	if err != nil {
		c.logger.Error().Err(err).Str("section_id", section.ID.String()).Msg("failed to load section")
		return Outbound{Type: TypeError, SectionID: section.ID, Error: "internal"}
	}
	if existing == nil || existing.SiteID != c.siteID || existing.UserID != c.userID {
		return Outbound{Type: TypeError, SectionID: section.ID, Error: "not_found"}
	}

	if err := builder.MergeSnapshot(existing, section); err != nil {
		return Outbound{Type: TypeError, SectionID: section.ID, Error: string(apperr.CodeOf(err))}
	}
	if err := c.hub.scheduler.Schedule(section); err != nil {
		c.logger.Warn().Err(err).Str("section_id", section.ID.String()).Msg("edit not scheduled")
		return Outbound{Type: TypeError, SectionID: section.ID, Error: "unavailable"}
	}
	return Outbound{Type: TypeSectionQueued, SectionID: section.ID}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.stop()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
