package builder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/events"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	mu    sync.Mutex
	saves []*models.Section
	err   error
}

func (p *recordingPersister) SaveSection(ctx context.Context, section *models.Section) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, section)
	return p.err
}

func (p *recordingPersister) Saves() []*models.Section {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.Section(nil), p.saves...)
}

func section(id models.SectionID, title string) *models.Section {
	return &models.Section{
		ID:      id,
		SiteID:  models.NewSiteID(),
		Type:    "links",
		Content: models.JSONMap{"title": title},
		Items:   []*models.SectionItem{{Content: models.JSONMap{"label": title}}},
	}
}

const testDelay = 100 * time.Millisecond

func TestDebounceWritesLatestSnapshotOnce(t *testing.T) {
	persister := &recordingPersister{}
	bus := events.NewLocalBus(zerolog.Nop())
	defer bus.Close()
	evs, cancel := bus.Subscribe()
	defer cancel()

	saver := New(persister, bus, testDelay, zerolog.Nop())
	id := models.NewSectionID()

	for _, title := range []string{"a", "ab", "abc"} {
		require.NoError(t, saver.Schedule(section(id, title)))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, saver.Pending())

	require.Eventually(t, func() bool { return len(persister.Saves()) == 1 }, time.Second, 5*time.Millisecond)
	// Nothing else shows up after the window.
	time.Sleep(2 * testDelay)

	saves := persister.Saves()
	require.Len(t, saves, 1)
	assert.Equal(t, "abc", saves[0].Content["title"])
	assert.Equal(t, "abc", saves[0].Items[0].Content["label"])
	assert.Zero(t, saver.Pending())

	select {
	case ev := <-evs:
		assert.Equal(t, events.TypeSectionSaved, ev.Type)
		assert.Contains(t, string(ev.Payload), `"title":"abc"`)
	case <-time.After(time.Second):
		t.Fatal("no section.saved event")
	}
}

func TestSectionsAreDebouncedIndependently(t *testing.T) {
	persister := &recordingPersister{}
	saver := New(persister, nil, testDelay, zerolog.Nop())

	require.NoError(t, saver.Schedule(section(models.NewSectionID(), "one")))
	require.NoError(t, saver.Schedule(section(models.NewSectionID(), "two")))
	assert.Equal(t, 2, saver.Pending())

	require.Eventually(t, func() bool { return len(persister.Saves()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduleCopiesSnapshot(t *testing.T) {
	persister := &recordingPersister{}
	saver := New(persister, nil, time.Hour, zerolog.Nop())

	s := section(models.NewSectionID(), "before")
	require.NoError(t, saver.Schedule(s))
	s.Type = "mutated"
	s.Items[0] = &models.SectionItem{Content: models.JSONMap{"label": "mutated"}}

	saver.Flush(context.Background())

	saves := persister.Saves()
	require.Len(t, saves, 1)
	assert.Equal(t, "links", saves[0].Type)
	assert.Equal(t, "before", saves[0].Items[0].Content["label"])
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	persister := &recordingPersister{}
	saver := New(persister, nil, time.Hour, zerolog.Nop())

	require.NoError(t, saver.Schedule(section(models.NewSectionID(), "x")))
	saver.Flush(context.Background())

	assert.Len(t, persister.Saves(), 1)
	assert.Zero(t, saver.Pending())
}

func TestCloseFlushesAndRejects(t *testing.T) {
	persister := &recordingPersister{}
	saver := New(persister, nil, time.Hour, zerolog.Nop())

	require.NoError(t, saver.Schedule(section(models.NewSectionID(), "x")))
	saver.Close(context.Background())

	assert.Len(t, persister.Saves(), 1)
	assert.ErrorIs(t, saver.Schedule(section(models.NewSectionID(), "y")), ErrClosed)
}

func TestFailedSaveIsDroppedWithoutEvent(t *testing.T) {
	persister := &recordingPersister{err: errors.New("database is locked")}
	bus := events.NewLocalBus(zerolog.Nop())
	defer bus.Close()
	evs, cancel := bus.Subscribe()
	defer cancel()

	saver := New(persister, bus, testDelay, zerolog.Nop())
	require.NoError(t, saver.Schedule(section(models.NewSectionID(), "x")))

	require.Eventually(t, func() bool { return len(persister.Saves()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(2 * testDelay)

	assert.Len(t, persister.Saves(), 1, "failed saves are not retried")
	assert.Zero(t, saver.Pending())
	assert.Empty(t, evs)
}

func TestScheduleRequiresID(t *testing.T) {
	saver := New(&recordingPersister{}, nil, testDelay, zerolog.Nop())
	assert.Error(t, saver.Schedule(&models.Section{}))
	assert.Error(t, saver.Schedule(nil))
}

func TestDefaultDelay(t *testing.T) {
	saver := New(&recordingPersister{}, nil, 0, zerolog.Nop())
	assert.Equal(t, DefaultDelay, saver.Delay())
}
