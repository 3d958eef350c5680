package events

import (
	"context"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus(zerolog.Nop())
	defer bus.Close()

	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	siteID := models.NewSiteID()
	ev, err := New(TypeSectionSaved, siteID, models.NewUserID(), map[string]string{"id": "s1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	for _, ch := range []<-chan Event{a, b} {
		got := receive(t, ch)
		assert.Equal(t, TypeSectionSaved, got.Type)
		assert.Equal(t, siteID, got.SiteID)
		assert.JSONEq(t, `{"id":"s1"}`, string(got.Payload))
	}
}

func TestLocalBusCancel(t *testing.T) {
	bus := NewLocalBus(zerolog.Nop())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	require.NoError(t, bus.Publish(context.Background(), Event{Type: TypeSiteUpdated}))
}

func TestLocalBusDropsWhenFull(t *testing.T) {
	bus := NewLocalBus(zerolog.Nop())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, bus.Publish(context.Background(), Event{Type: TypeSectionSaved}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestLocalBusClose(t *testing.T) {
	bus := NewLocalBus(zerolog.Nop())
	ch, cancel := bus.Subscribe()

	require.NoError(t, bus.Close())
	_, ok := <-ch
	assert.False(t, ok)

	cancel()
	late, _ := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	require.NoError(t, bus.Publish(context.Background(), Event{Type: TypeSectionSaved}))
}
