// Package realtime serves the builder's websocket channel.
//
// Every open builder session of a site receives the site's bus events as JSON text frames.
// Sessions send whole-section edits which are handed to the autosaver after an ownership
// check. Closing a socket abandons nothing server side: scheduled saves still fire.
//
// Client messages:
//
//	{"type":"section.edit","section":{...}}  -> {"type":"section.queued","section_id":"..."}
//	{"type":"ping"}                          -> {"type":"pong"}
//	anything else                            -> {"type":"error","error":"unknown_type"}
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linkfolio/linkfolio/pkg/events"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 32
)

// Scheduler queues a section snapshot for debounced persistence.
type Scheduler interface {
	Schedule(section *models.Section) error
}

// SectionGetter looks up the stored section an edit refers to.
type SectionGetter interface {
	GetSection(ctx context.Context, id models.SectionID) (*models.Section, error)
}

type Options struct {
	Bus       events.Bus
	Scheduler Scheduler
	Sections  SectionGetter
	Logger    zerolog.Logger
	// ReadOnly reports maintenance mode; edits are refused while it returns true.
	ReadOnly func() bool
	// CheckOrigin is passed to the websocket upgrader. Nil accepts any origin.
	CheckOrigin func(r *http.Request) bool
}

// Hub tracks the open builder sessions per site and forwards bus events to them.
type Hub struct {
	scheduler Scheduler
	sections  SectionGetter
	logger    zerolog.Logger
	readOnly  func() bool
	upgrader  websocket.Upgrader

	mu     sync.RWMutex
	rooms  map[models.SiteID]map[*client]struct{}
	closed bool

	cancel func()
	wg     sync.WaitGroup
}

func NewHub(opts Options) *Hub {
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	readOnly := opts.ReadOnly
	if readOnly == nil {
		readOnly = func() bool { return false }
	}

	h := &Hub{
		scheduler: opts.Scheduler,
		sections:  opts.Sections,
		logger:    opts.Logger.With().Str("component", "realtime").Logger(),
		readOnly:  readOnly,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		rooms: make(map[models.SiteID]map[*client]struct{}),
	}

	sub, cancel := opts.Bus.Subscribe()
	h.cancel = cancel
	h.wg.Add(1)
	go h.dispatch(sub)
	return h
}

// Serve upgrades the request and runs a builder session for site on behalf of user. It
// returns once the session ends. Callers must have checked that user owns site.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, site *models.Site, user *models.User) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(h, conn, site.ID, user.ID)
	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Debug().
		Str("site_id", site.ID.String()).
		Str("user_id", user.ID.String()).
		Msg("builder session opened")

	go c.writePump()
	c.readPump()
}

// Clients returns the number of open sessions of a site.
func (h *Hub) Clients(siteID models.SiteID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[siteID])
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	room, ok := h.rooms[c.siteID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.siteID] = room
	}
	room[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[c.siteID]
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.siteID)
	}
	c.stop()
}

func (h *Hub) dispatch(sub <-chan events.Event) {
	defer h.wg.Done()

	for ev := range sub {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error().Err(err).Str("type", ev.Type).Msg("failed to encode event")
			continue
		}

		h.mu.RLock()
		for c := range h.rooms[ev.SiteID] {
			if !c.enqueue(data) {
				h.logger.Warn().
					Str("site_id", ev.SiteID.String()).
					Str("type", ev.Type).
					Msg("dropping event, session is full")
			}
		}
		h.mu.RUnlock()
	}
}

// Close ends every session and stops forwarding events.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for siteID, room := range h.rooms {
		for c := range room {
			c.stop()
		}
		delete(h.rooms, siteID)
	}
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	return nil
}
