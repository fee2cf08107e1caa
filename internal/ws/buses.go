package ws

import "sync"

// busCapacity bounds every fan-out subscription; once a slow subscriber's
// buffer is full, new sends to it are discarded rather than blocking the
// publisher.
const busCapacity = 100

// bus is a bounded multi-subscriber fan-out queue. Publish never blocks: a
// subscriber that cannot keep up silently drops the event instead of
// stalling every other subscriber.
type bus struct {
	mu          sync.Mutex
	subscribers map[int]chan []byte
	nextID      int
}

func newBus() *bus {
	return &bus{subscribers: make(map[int]chan []byte)}
}

func (b *bus) subscribe() (id int, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id = b.nextID
	b.nextID++
	ch = make(chan []byte, busCapacity)
	b.subscribers[id] = ch
	return id, ch
}

func (b *bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *bus) publish(msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			// subscriber lagging, drop silently
		}
	}
}

// busRegistry is the global bus plus lazily-created per-text-channel buses.
type busRegistry struct {
	global *bus

	mu       sync.Mutex
	channels map[string]*bus
}

func newBusRegistry() *busRegistry {
	return &busRegistry{
		global:   newBus(),
		channels: make(map[string]*bus),
	}
}

func (r *busRegistry) channelBus(name string) *bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.channels[name]
	if !ok {
		b = newBus()
		r.channels[name] = b
	}
	return b
}

func (r *busRegistry) removeChannelBus(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, name)
}

func (r *busRegistry) publishChannel(name string, msg []byte) {
	r.channelBus(name).publish(msg)
}

func (r *busRegistry) publishGlobal(msg []byte) {
	r.global.publish(msg)
}
