package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	assert.Equal(t, 2, b.Count())

	b.Unsubscribe(ch1)
	assert.Equal(t, 1, b.Count())

	_, open := <-ch1
	assert.False(t, open, "unsubscribed channel is closed")

	b.Unsubscribe(ch2)
	b.Unsubscribe(ch2)
	assert.Equal(t, 0, b.Count())
}

func TestBroadcaster_Publish(t *testing.T) {
	b := NewBroadcaster()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(Event{Type: TypeInvalidated, Realm: "memes", Name: "cat.gif"})

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, TypeInvalidated, got.Type, "subscriber %d", i)
			assert.Equal(t, "memes", got.Realm)
			assert.NotZero(t, got.Timestamp)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestBroadcaster_DropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+36; i++ {
		b.Publish(Event{Type: TypeRendered, Realm: "music"})
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestBroadcaster_ListenersAreNotSubscribers(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	ch := b.Listen()
	assert.Equal(t, 1, b.Count())

	b.Unlisten(ch)
	b.Unlisten(ch)
	assert.Equal(t, 1, b.Count())

	select {
	case _, open := <-ch:
		assert.False(t, open, "unlistened channel is closed")
	case <-time.After(time.Second):
		t.Fatal("listener channel not closed")
	}
}

func TestBroadcaster_ListenerReceivesEveryEvent(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Listen()
	defer b.Unlisten(ch)

	total := subscriberBuffer * 4
	for i := 0; i < total; i++ {
		b.Publish(Event{Type: TypeInvalidated, Realm: "music", Items: i})
	}

	for i := 0; i < total; i++ {
		select {
		case got := <-ch:
			assert.Equal(t, i, got.Items, "events arrive in publish order")
		case <-time.After(time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}
}

func TestMarshalEvent(t *testing.T) {
	data, err := MarshalEvent(Event{Type: TypeRendered, Realm: "games", Generation: 7, Items: 3, Timestamp: 1700000000})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "rendered", decoded["type"])
	assert.Equal(t, float64(7), decoded["generation"])
	assert.NotContains(t, decoded, "name")
}
