// Package builder implements debounced persistence of builder edits.
//
// The page builder sends the whole section on every keystroke. [Autosaver] keeps only the
// newest snapshot per section and writes it once the section has been quiet for the
// configured delay. A successful write is announced on the event bus as
// [events.TypeSectionSaved] so that every open builder session of the site refreshes.
//
// There is no reconciliation between concurrent editors: the last snapshot to be persisted
// wins. A failed write is logged and dropped; the next edit schedules a fresh one.
package builder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linkfolio/linkfolio/pkg/events"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDelay is the quiet period after the last edit before a section is written.
const DefaultDelay = 1500 * time.Millisecond

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("autosaver is closed")

// Persister writes a whole-section snapshot, replacing the stored items.
type Persister interface {
	SaveSection(ctx context.Context, section *models.Section) error
}

type pending struct {
	section *models.Section
	timer   *time.Timer
	// gen increases on every reschedule; a timer only fires for the generation it was armed for.
	gen uint64
}

// Autosaver debounces section writes. It is safe for concurrent use.
type Autosaver struct {
	persister Persister
	publisher events.Publisher
	delay     time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer

	mu       sync.Mutex
	pending  map[models.SectionID]*pending
	closed   bool
	inflight sync.WaitGroup
}

// New returns an Autosaver writing through persister and announcing saves on publisher.
// publisher may be nil. A non-positive delay selects DefaultDelay.
func New(persister Persister, publisher events.Publisher, delay time.Duration, logger zerolog.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Autosaver{
		persister: persister,
		publisher: publisher,
		delay:     delay,
		logger:    logger.With().Str("component", "autosave").Logger(),
		tracer:    otel.Tracer("github.com/linkfolio/linkfolio/pkg/builder"),
		pending:   make(map[models.SectionID]*pending),
	}
}

// Delay returns the debounce delay.
func (a *Autosaver) Delay() time.Duration {
	return a.delay
}

// Schedule records section as the latest snapshot for its ID and restarts that section's timer.
// The snapshot is copied, so the caller may reuse section afterwards.
func (a *Autosaver) Schedule(section *models.Section) error {
	if section == nil || section.ID.IsZero() {
		return errors.New("section ID is required")
	}
	snapshot := copySection(section)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	p, ok := a.pending[snapshot.ID]
	if !ok {
		p = &pending{}
		a.pending[snapshot.ID] = p
	} else {
		p.timer.Stop()
	}
	p.gen++
	p.section = snapshot

	id, gen := snapshot.ID, p.gen
	p.timer = time.AfterFunc(a.delay, func() { a.fire(id, gen) })

	a.logger.Debug().Str("section_id", id.String()).Uint64("gen", gen).Msg("autosave scheduled")
	return nil
}

// Pending returns the number of sections waiting to be written.
func (a *Autosaver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// fire persists the snapshot unless it has been superseded or flushed in the meantime.
func (a *Autosaver) fire(id models.SectionID, gen uint64) {
	a.mu.Lock()
	p, ok := a.pending[id]
	if !ok || p.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.pending, id)
	a.inflight.Add(1)
	a.mu.Unlock()

	defer a.inflight.Done()
	a.persist(context.Background(), p.section)
}

// Flush writes every pending snapshot now and waits for writes already in progress.
func (a *Autosaver) Flush(ctx context.Context) {
	a.mu.Lock()
	batch := make([]*models.Section, 0, len(a.pending))
	for id, p := range a.pending {
		p.timer.Stop()
		batch = append(batch, p.section)
		delete(a.pending, id)
	}
	a.inflight.Add(len(batch))
	a.mu.Unlock()

	for _, section := range batch {
		a.persist(ctx, section)
		a.inflight.Done()
	}
	a.inflight.Wait()
}

// Close flushes pending snapshots and rejects later schedules.
func (a *Autosaver) Close(ctx context.Context) {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.Flush(ctx)
}

func (a *Autosaver) persist(ctx context.Context, section *models.Section) {
	ctx, span := a.tracer.Start(ctx, "builder.autosave",
		trace.WithAttributes(attribute.String("section.id", section.ID.String())))
	defer span.End()

	log := a.logger.With().Str("section_id", section.ID.String()).Logger()

	if err := a.persister.SaveSection(ctx, section); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		log.Error().Err(err).Msg("autosave failed, dropping snapshot")
		return
	}
	log.Info().Int("items", len(section.Items)).Msg("section saved")

	if a.publisher == nil {
		return
	}
	ev, err := events.New(events.TypeSectionSaved, section.SiteID, section.UserID, section)
	if err != nil {
		log.Error().Err(err).Msg("encoding section.saved event")
		return
	}
	if err := a.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Msg("publishing section.saved event")
	}
}

func copySection(s *models.Section) *models.Section {
	out := *s
	out.Items = make([]*models.SectionItem, 0, len(s.Items))
	for _, item := range s.Items {
		if item == nil {
			continue
		}
		cp := *item
		out.Items = append(out.Items, &cp)
	}
	return &out
}
