package broadcast

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/relay/core/logger"
)

// Registry maps service types to their channels. Lookups are lock-free: the tables
// are immutable once published and replaced copy-on-write under a mutex.
//
// Most programs use the process-wide Default registry; tests and isolated subsystems
// can create their own with NewRegistry.
type Registry struct {
	mu       sync.Mutex
	services atomic.Pointer[map[reflect.Type]any] // -> *ChannelInfo[S]
	keyed    atomic.Pointer[map[keyedID]any]      // -> *KeyedChannelMap[K, S]
	settings settings
}

type keyedID struct {
	service reflect.Type
	key     reflect.Type
}

// NewRegistry creates an empty registry. Options become the defaults of every service
// registered on it.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{settings: defaultSettings().with(opts...)}
	services := make(map[reflect.Type]any)
	keyed := make(map[keyedID]any)
	r.services.Store(&services)
	r.keyed.Store(&keyed)
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry()
})

// Default returns the process-wide registry. It is created on first use and lives
// for the rest of the process; there is nothing to tear down.
func Default() *Registry {
	return defaultRegistry()
}

// ChannelInfo is the registration record of one service type.
type ChannelInfo[S any] struct {
	settings   settings
	newBroker  func(*Channel[S]) any
	brokerType reflect.Type

	mu      sync.Mutex
	channel atomic.Pointer[Channel[S]]
	empty   *Channel[S]
}

// Name returns the service name used in logs and metrics.
func (i *ChannelInfo[S]) Name() string {
	return i.settings.name
}

// MaxLinks returns the subscriber cap of the service's channels.
func (i *ChannelInfo[S]) MaxLinks() int {
	return i.settings.maxLinks
}

// Channel returns the unkeyed channel, creating it on first use.
func (i *ChannelInfo[S]) Channel() *Channel[S] {
	if c := i.channel.Load(); c != nil {
		return c
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if c := i.channel.Load(); c != nil {
		return c
	}
	c := newChannel(i.settings, i.newBroker)
	i.channel.Store(c)
	return c
}

// TryGetChannel returns the unkeyed channel if it was already created.
func (i *ChannelInfo[S]) TryGetChannel() (*Channel[S], bool) {
	c := i.channel.Load()
	return c, c != nil
}

// Empty returns the shared, permanently empty channel of the service.
func (i *ChannelInfo[S]) Empty() *Channel[S] {
	return i.empty
}

// NewChannel creates a fresh channel with the service's settings, detached from the registry.
func (i *ChannelInfo[S]) NewChannel() *Channel[S] {
	return newChannel(i.settings, i.newBroker)
}

// BrokerType returns the type of the broker built for the service's channels.
func (i *ChannelInfo[S]) BrokerType() reflect.Type {
	return i.brokerType
}

// channelBroker returns the broker of c as B, failing when the service was registered with another broker type.
func channelBroker[B, S any](info *ChannelInfo[S], c *Channel[S]) (B, error) {
	b, ok := BrokerOf[B](c)
	if !ok {
		var zero B
		return zero, fmt.Errorf("%w: %s has broker %s, not %s",
			ErrBrokerType, info.Name(), info.brokerType, reflect.TypeFor[B]())
	}
	return b, nil
}

// ServiceName returns the default name of service type S: its package path and type name.
func ServiceName[S any]() string {
	t := reflect.TypeFor[S]()
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Register adds service type S to r. newBroker builds the fan-out adapter of type B
// that senders get from Send; B is S itself when every method of S returns nothing,
// or a dedicated type whose methods return aggregated results. Registering a type
// twice fails with ErrAlreadyRegistered and keeps the first registration.
func Register[S, B any](r *Registry, newBroker func(*Channel[S]) B, opts ...Option) error {
	if newBroker == nil {
		return fmt.Errorf("%w: %s", ErrNilBroker, ServiceName[S]())
	}

	s := r.settings
	s.name = ""
	s = s.with(opts...)
	if s.name == "" {
		s.name = ServiceName[S]()
	}

	typ := reflect.TypeFor[S]()

	r.mu.Lock()
	current := *r.services.Load()
	if _, exists := current[typ]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, s.name)
	}

	erased := func(c *Channel[S]) any { return newBroker(c) }
	info := &ChannelInfo[S]{
		settings:   s,
		newBroker:  erased,
		brokerType: reflect.TypeFor[B](),
		empty:      newEmptyChannel(s, erased),
	}

	next := maps.Clone(current)
	next[typ] = info
	r.services.Store(&next)
	r.mu.Unlock()

	s.logger.Info("broadcast service registered",
		logger.Component("broadcast"),
		logger.Service(s.name),
		logger.Type(info.brokerType.String()),
		logger.Count("max_links", s.maxLinks))
	return nil
}

// MustRegister is like Register but panics on failure. Intended for init-time wiring.
func MustRegister[S, B any](r *Registry, newBroker func(*Channel[S]) B, opts ...Option) {
	if err := Register(r, newBroker, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the registration of S or ErrNotRegistered.
func Lookup[S any](r *Registry) (*ChannelInfo[S], error) {
	v, ok := (*r.services.Load())[reflect.TypeFor[S]()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, ServiceName[S]())
	}
	return v.(*ChannelInfo[S]), nil
}

// EmptyChannel returns the shared empty channel of S.
func EmptyChannel[S any](r *Registry) (*Channel[S], error) {
	info, err := Lookup[S](r)
	if err != nil {
		return nil, err
	}
	return info.Empty(), nil
}

// Keyed returns the keyed channel map of S partitioned by K, creating it on first use.
func Keyed[S any, K comparable](r *Registry) (*KeyedChannelMap[K, S], error) {
	_, m, err := lookupKeyed[S, K](r)
	return m, err
}

func lookupKeyed[S any, K comparable](r *Registry) (*ChannelInfo[S], *KeyedChannelMap[K, S], error) {
	info, err := Lookup[S](r)
	if err != nil {
		return nil, nil, err
	}

	id := keyedID{service: reflect.TypeFor[S](), key: reflect.TypeFor[K]()}
	if v, ok := (*r.keyed.Load())[id]; ok {
		return info, v.(*KeyedChannelMap[K, S]), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.keyed.Load()
	if v, ok := current[id]; ok {
		return info, v.(*KeyedChannelMap[K, S]), nil
	}

	m := newKeyedChannelMap[K](info.settings, info.newBroker, info.empty)
	next := maps.Clone(current)
	next[id] = m
	r.keyed.Store(&next)
	return info, m, nil
}

// SendChannel returns the channel senders of S dispatch on: the unkeyed channel once
// somebody subscribed, the shared empty channel before that.
func SendChannel[S any](r *Registry) (*Channel[S], error) {
	info, err := Lookup[S](r)
	if err != nil {
		return nil, err
	}
	if c, ok := info.TryGetChannel(); ok {
		return c, nil
	}
	return info.empty, nil
}

// SendKeyChannel returns the channel for key, or the shared empty channel for unknown keys.
func SendKeyChannel[S any, K comparable](r *Registry, key K) (*Channel[S], error) {
	m, err := Keyed[S, K](r)
	if err != nil {
		return nil, err
	}
	return m.Channel(key), nil
}

// Send returns the broker of S as type B. When nobody ever subscribed it is the broker
// of the empty channel, so calls on it reach nobody.
func Send[S, B any](r *Registry) (B, error) {
	info, err := Lookup[S](r)
	if err != nil {
		var zero B
		return zero, err
	}
	c, ok := info.TryGetChannel()
	if !ok {
		c = info.empty
	}
	return channelBroker[B](info, c)
}

// SendKey returns the broker of S for key as type B. Unknown keys yield the empty broker.
func SendKey[S, B any, K comparable](r *Registry, key K) (B, error) {
	info, m, err := lookupKeyed[S, K](r)
	if err != nil {
		var zero B
		return zero, err
	}
	return channelBroker[B](info, m.Channel(key))
}

// Subscribe opens a strong link for svc on the channel of S.
// The link is nil when the channel is at capacity.
func Subscribe[S any](r *Registry, svc S) (*Link[S], error) {
	info, err := Lookup[S](r)
	if err != nil {
		return nil, err
	}
	return info.Channel().Open(svc), nil
}

// SubscribeWeak opens a weak link for owner on the channel of S. See OpenWeak.
func SubscribeWeak[S, O any](r *Registry, owner *O, bind func(*O) S) (*Link[S], error) {
	info, err := Lookup[S](r)
	if err != nil {
		return nil, err
	}
	return OpenWeak(info.Channel(), owner, bind), nil
}

// SubscribeKey opens a strong link for svc on the channel of S for key.
func SubscribeKey[S any, K comparable](r *Registry, key K, svc S) (*Link[S], error) {
	m, err := Keyed[S, K](r)
	if err != nil {
		return nil, err
	}
	return m.Open(key, svc), nil
}

// SubscribeKeyWeak opens a weak link for owner on the channel of S for key.
func SubscribeKeyWeak[S any, K comparable, O any](r *Registry, key K, owner *O, bind func(*O) S) (*Link[S], error) {
	m, err := Keyed[S, K](r)
	if err != nil {
		return nil, err
	}
	return OpenWeakKey(m, key, owner, bind), nil
}

// Services returns the names of all registered services, sorted.
func (r *Registry) Services() []string {
	current := *r.services.Load()
	names := make([]string, 0, len(current))
	for _, v := range current {
		names = append(names, v.(interface{ Name() string }).Name())
	}
	slices.Sort(names)
	return names
}
