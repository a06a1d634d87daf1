package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe("a", 4)
	defer cancelA()
	b, cancelB := bus.Subscribe("b", 4)
	defer cancelB()

	bus.Publish(Event{Type: ItemCreated, ID: 1})

	ea := <-a
	eb := <-b
	assert.Equal(t, ItemCreated, ea.Type)
	assert.Equal(t, int64(1), eb.ID)
	assert.False(t, ea.At.IsZero())
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("slow", 1)
	defer cancel()

	bus.Publish(Event{Type: ItemUpdated, ID: 1})
	bus.Publish(Event{Type: ItemUpdated, ID: 2})

	assert.Equal(t, uint64(1), bus.Dropped())
	e := <-ch
	assert.Equal(t, int64(1), e.ID)
}

func TestCancelAndClose(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("x", 1)
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	other, _ := bus.Subscribe("y", 1)
	bus.Close()
	_, ok = <-other
	assert.False(t, ok)

	// Publishing after close is a no-op.
	bus.Publish(Event{Type: StockChanged})
	late, _ := bus.Subscribe("z", 1)
	_, ok = <-late
	assert.False(t, ok)
}
