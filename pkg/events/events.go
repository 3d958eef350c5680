// Package events fans builder events out to interested parties: websocket sessions of the
// same process through [LocalBus], and other linkfolio instances through [AMQPBus].
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
)

const (
	TypeSectionSaved   = "section.saved"
	TypeSectionDeleted = "section.deleted"
	TypeSectionsOrder  = "sections.reordered"
	TypeSiteUpdated    = "site.updated"
)

// subscriberBuffer is the capacity of each subscriber channel.
const subscriberBuffer = 64

// Event is something that happened to a site. Payload is the JSON-encoded entity.
type Event struct {
	Type    string          `json:"type"`
	SiteID  models.SiteID   `json:"site_id"`
	UserID  models.UserID   `json:"user_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// Origin identifies the instance that published the event.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// New builds an event with payload encoded as JSON.
func New(typ string, siteID models.SiteID, userID models.UserID, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    typ,
		SiteID:  siteID,
		UserID:  userID,
		Payload: data,
		At:      time.Now().UTC(),
	}, nil
}

// Publisher is the write side of a bus.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Bus delivers published events to every subscriber.
type Bus interface {
	Publisher
	// Subscribe returns a channel of events and a function that cancels the subscription
	// and closes the channel.
	Subscribe() (<-chan Event, func())
	Close() error
}

// LocalBus is an in-process Bus. Delivery never blocks the publisher: a subscriber whose
// buffer is full misses the event.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
	logger zerolog.Logger
}

var _ Bus = (*LocalBus)(nil)

func NewLocalBus(logger zerolog.Logger) *LocalBus {
	return &LocalBus{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn().
				Int("subscriber", id).
				Str("type", ev.Type).
				Msg("dropping event, subscriber is full")
		}
	}
	return nil
}

func (b *LocalBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Close closes all subscriber channels. Later publishes are ignored.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	return nil
}
