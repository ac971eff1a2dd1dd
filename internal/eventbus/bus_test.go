package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()

	id1, ch1 := bus.Subscribe(4)
	id2, ch2 := bus.Subscribe(4)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.PublishNew(EventTypeRoutineTriggered, "01A", map[string]string{"task_id": "T1"})

	for _, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTypeRoutineTriggered, ev.Type)
			assert.Equal(t, "01A", ev.ResourceID)
			assert.Equal(t, "T1", ev.Metadata["task_id"])
			assert.NotEmpty(t, ev.ID)
			assert.False(t, ev.CreatedAt.IsZero())
		default:
			t.Fatal("expected event on subscriber channel")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()

	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.PublishNew(EventTypeTaskCreated, "T1", nil)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := New()

	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTypeRoutineCreated, "01A", nil)
	bus.PublishNew(EventTypeRoutineCreated, "01B", nil) // dropped

	ev := <-ch
	require.Equal(t, "01A", ev.ResourceID)

	select {
	case ev := <-ch:
		t.Fatalf("expected second event to be dropped, got %v", ev.ResourceID)
	default:
	}
}
