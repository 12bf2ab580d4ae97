package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	h := newHub()
	ch1, unsub1 := h.Subscribe()
	ch2, unsub2 := h.Subscribe()
	defer unsub1()
	defer unsub2()

	h.publish(EventGameStarted, roomPayload{})

	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := <-ch
		assert.Equal(t, EventGameStarted, ev.Type)
		assert.NotZero(t, ev.Timestamp)
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	h := newHub()
	ch, unsubscribe := h.Subscribe()

	unsubscribe()
	h.publish(EventTurnEnded, roomPayload{})

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe must be a no-op.
	unsubscribe()
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	h := newHub()
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// Nobody is reading; overflowing the buffer must not block publish.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.publish(EventDiceRolled, roomPayload{})
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_CloseTerminatesStreams(t *testing.T) {
	t.Parallel()

	h := newHub()
	ch, unsubscribe := h.Subscribe()

	h.close()

	_, open := <-ch
	assert.False(t, open)

	// Publishing and closing again must not panic.
	h.publish(EventTurnEnded, roomPayload{})
	h.close()
	unsubscribe()

	// Subscribing after close yields an already-closed channel.
	late, lateUnsub := h.Subscribe()
	defer lateUnsub()
	_, open = <-late
	require.False(t, open)
}
