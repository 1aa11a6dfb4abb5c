package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/presenced/internal/status"
)

func testChange(label string) status.ActiveChange {
	return status.ActiveChange{
		To: &status.Entry{ID: "x", Label: label, Source: status.SourceToolPushed},
		At: time.Now(),
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe(4)
	ch2, cancel2 := bus.Subscribe(4)
	defer cancel1()
	defer cancel2()

	require.NoError(t, bus.Publish(t.Context(), testChange("busy")))

	assert.Equal(t, "busy", (<-ch1).ToLabel())
	assert.Equal(t, "busy", (<-ch2).ToLabel())
}

func TestCanceledSubscriberStopsReceiving(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(1)
	cancel()

	// Channel is closed; publish must not block or panic.
	require.NoError(t, bus.Publish(t.Context(), testChange("busy")))

	_, open := <-ch
	assert.False(t, open)
}

func TestCloseClosesSubscriptions(t *testing.T) {
	bus := NewBus()
	ch, _ := bus.Subscribe(1)

	bus.Close()
	_, open := <-ch
	assert.False(t, open)

	// Publishing after close is a silent no-op.
	require.NoError(t, bus.Publish(t.Context(), testChange("busy")))

	// Subscribing after close yields a closed channel.
	late, _ := bus.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}

func TestCancelIsIdempotent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	_, cancel := bus.Subscribe(1)
	cancel()
	cancel()
}
