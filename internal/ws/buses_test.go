package ws

import "testing"

func TestBusPublishDeliversToAllSubscribers(t *testing.T) {
	b := newBus()
	_, ch1 := b.subscribe()
	_, ch2 := b.subscribe()

	b.publish([]byte("hello"))

	for _, ch := range []chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg) != "hello" {
				t.Fatalf("got %q, want %q", msg, "hello")
			}
		default:
			t.Fatal("expected a message to be queued for every subscriber")
		}
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := newBus()
	id, ch := b.subscribe()
	b.unsubscribe(id)

	b.publish([]byte("hello"))

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestBusPublishDropsWhenSubscriberLags(t *testing.T) {
	b := newBus()
	_, ch := b.subscribe()

	for i := 0; i < busCapacity+10; i++ {
		b.publish([]byte("msg"))
	}

	if len(ch) != busCapacity {
		t.Fatalf("buffered channel len = %d, want %d", len(ch), busCapacity)
	}
}

func TestBusRegistryChannelBusIsLazyAndStable(t *testing.T) {
	r := newBusRegistry()
	first := r.channelBus("general")
	second := r.channelBus("general")
	if first != second {
		t.Fatal("expected repeated lookups of the same channel to return the same bus")
	}

	r.removeChannelBus("general")
	third := r.channelBus("general")
	if first == third {
		t.Fatal("expected a fresh bus after removeChannelBus")
	}
}
