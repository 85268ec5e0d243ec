package broadcast

import (
	"sync"
	"sync/atomic"
)

// KeyedChannelMap partitions a service by key: only senders and receivers using the
// same key communicate. Channels are created on first Open for a key and evict
// themselves when their last link closes.
type KeyedChannelMap[K comparable, S any] struct {
	channels sync.Map // K -> *Channel[S]
	size     atomic.Int64
	empty    *Channel[S]

	settings  settings
	newBroker func(*Channel[S]) any
}

// NewKeyedChannelMap creates a standalone keyed map that is not tracked by any registry.
func NewKeyedChannelMap[K comparable, S any](opts ...Option) *KeyedChannelMap[K, S] {
	s := defaultSettings().with(opts...)
	if s.name == "" {
		s.name = ServiceName[S]()
	}
	return newKeyedChannelMap[K, S](s, nil, newEmptyChannel[S](s, nil))
}

func newKeyedChannelMap[K comparable, S any](s settings, newBroker func(*Channel[S]) any, empty *Channel[S]) *KeyedChannelMap[K, S] {
	return &KeyedChannelMap[K, S]{
		empty:     empty,
		settings:  s,
		newBroker: newBroker,
	}
}

// Open subscribes svc under key with a strong reference.
// Returns nil when the key's channel is at capacity.
func (m *KeyedChannelMap[K, S]) Open(key K, svc S) *Link[S] {
	return m.attach(key, newStrongLink(svc))
}

// OpenWeakKey subscribes owner under key without keeping it alive. See OpenWeak.
func OpenWeakKey[K comparable, S, O any](m *KeyedChannelMap[K, S], key K, owner *O, bind func(*O) S) *Link[S] {
	l := newWeakBinding(m.settings.name, owner, bind)
	if l == nil {
		return nil
	}
	return m.attach(key, l)
}

func (m *KeyedChannelMap[K, S]) attach(key K, l *Link[S]) *Link[S] {
	for {
		switch m.getOrCreate(key).attach(l) {
		case attachOK:
			return l
		case attachFull:
			return nil
		}
		// The channel was evicted between lookup and attach; the next lookup finds
		// or creates its replacement.
	}
}

func (m *KeyedChannelMap[K, S]) getOrCreate(key K) *Channel[S] {
	if v, ok := m.channels.Load(key); ok {
		return v.(*Channel[S])
	}

	c := newChannel(m.settings, m.newBroker)
	c.key = key
	c.evict = func(evicted *Channel[S]) {
		if m.channels.CompareAndDelete(key, evicted) {
			m.size.Add(-1)
		}
	}

	v, loaded := m.channels.LoadOrStore(key, c)
	if !loaded {
		m.size.Add(1)
	}
	return v.(*Channel[S])
}

// Channel returns the channel for key, or the shared empty channel when nobody is
// subscribed under key. It never allocates on a miss.
func (m *KeyedChannelMap[K, S]) Channel(key K) *Channel[S] {
	if c, ok := m.TryGetChannel(key); ok {
		return c
	}
	return m.empty
}

// TryGetChannel returns the live channel for key, if any.
func (m *KeyedChannelMap[K, S]) TryGetChannel(key K) (*Channel[S], bool) {
	v, ok := m.channels.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Channel[S]), true
}

// Empty returns the shared, permanently empty channel used for unknown keys.
func (m *KeyedChannelMap[K, S]) Empty() *Channel[S] {
	return m.empty
}

// Len returns the number of keys that currently have a channel.
func (m *KeyedChannelMap[K, S]) Len() int {
	return int(m.size.Load())
}

// Keys returns the keys that currently have a channel, in no particular order.
func (m *KeyedChannelMap[K, S]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.channels.Range(func(k, _ any) bool {
		keys = append(keys, k.(K))
		return true
	})
	return keys
}

// Name returns the service name used in logs and metrics.
func (m *KeyedChannelMap[K, S]) Name() string {
	return m.settings.name
}
