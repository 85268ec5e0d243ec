package broadcast

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/dmitrymomot/relay/core/logger"
)

// Channel is the subscriber registry of one service type, optionally one partition key.
//
// Open, Close and Trim serialize on the channel lock. Dispatch never takes it: senders
// iterate a snapshot of the slot array, so subscribers may open or close links (on this
// or any other channel) from inside their own callbacks.
type Channel[S any] struct {
	mu   sync.Mutex
	list *slotList[S]

	name             string
	key              any
	maxLinks         int
	trimThreshold    int
	livenessInterval int
	opsSinceTrim     int
	trimCycles       int
	detached         bool
	evict            func(*Channel[S]) // set for keyed channels

	staleRemoved atomic.Int64

	newBroker  func(*Channel[S]) any
	brokerOnce sync.Once
	broker     any

	logger   *slog.Logger
	listener Listener
}

// ChannelStats is a point-in-time view of a channel for diagnostics.
type ChannelStats struct {
	Service      string
	Count        int
	Capacity     int
	MaxLinks     int
	TrimCycles   int
	StaleRemoved int64
	Detached     bool
}

// NewChannel creates a standalone channel that is not tracked by any registry.
// Senders reach its subscribers through Each, EachErr, Call, CallErr and CallAsync.
func NewChannel[S any](opts ...Option) *Channel[S] {
	s := defaultSettings().with(opts...)
	if s.name == "" {
		s.name = ServiceName[S]()
	}
	return newChannel[S](s, nil)
}

func newChannel[S any](s settings, newBroker func(*Channel[S]) any) *Channel[S] {
	return &Channel[S]{
		list:             newSlotList[S](s.initialCapacity, s.minCapacity),
		name:             s.name,
		maxLinks:         s.maxLinks,
		trimThreshold:    s.trimThreshold,
		livenessInterval: s.livenessInterval,
		newBroker:        newBroker,
		logger:           s.logger,
		listener:         s.listener,
	}
}

// newEmptyChannel creates the permanently empty channel: it has no slots and refuses every link.
func newEmptyChannel[S any](s settings, newBroker func(*Channel[S]) any) *Channel[S] {
	s.initialCapacity = 0
	s.minCapacity = 0
	c := newChannel(s, newBroker)
	c.maxLinks = 0
	return c
}

// Name returns the service name used in logs and metrics.
func (c *Channel[S]) Name() string {
	return c.name
}

// Key returns the partition key of a keyed channel, or nil.
func (c *Channel[S]) Key() any {
	return c.key
}

// MaxLinks returns the subscriber cap; Unbounded when there is none.
func (c *Channel[S]) MaxLinks() int {
	return c.maxLinks
}

// Count returns the number of occupied slots. Weak links whose owner was collected
// are counted until dispatch or a liveness sweep removes them.
func (c *Channel[S]) Count() int {
	return c.list.len()
}

func (c *Channel[S]) brokerValue() any {
	c.brokerOnce.Do(func() {
		if c.newBroker != nil {
			c.broker = c.newBroker(c)
		}
	})
	return c.broker
}

// BrokerOf returns the memoized broker of a registry-managed channel as type B.
// It fails for standalone channels and when the service was registered with another broker type.
func BrokerOf[B, S any](c *Channel[S]) (B, bool) {
	b, ok := c.brokerValue().(B)
	return b, ok
}

// Open subscribes svc with a strong reference. It returns nil when the channel is at
// capacity or no longer accepts subscriptions.
func (c *Channel[S]) Open(svc S) *Link[S] {
	l := newStrongLink(svc)
	if c.attach(l) != attachOK {
		return nil
	}
	return l
}

// OpenWeak subscribes owner without keeping it alive. bind turns the owner into the
// service; it must not capture owner. When bind is nil, *O must implement S.
// Once owner is garbage collected the link stops receiving and is removed lazily.
func OpenWeak[S, O any](c *Channel[S], owner *O, bind func(*O) S) *Link[S] {
	l := newWeakBinding(c.name, owner, bind)
	if l == nil || c.attach(l) != attachOK {
		return nil
	}
	return l
}

func newWeakBinding[S, O any](service string, owner *O, bind func(*O) S) *Link[S] {
	if owner == nil {
		return nil
	}
	if bind == nil {
		if _, ok := any(owner).(S); !ok {
			panic(fmt.Sprintf("broadcast: %T does not implement %s", owner, service))
		}
		bind = func(o *O) S { return any(o).(S) }
	}

	ref := weak.Make(owner)
	return newWeakLink(func() (S, bool) {
		o := ref.Value()
		if o == nil {
			var zero S
			return zero, false
		}
		return bind(o), true
	})
}

// Trim runs a liveness sweep and compacts the slot array immediately.
// Returns the number of dead weak links removed.
func (c *Channel[S]) Trim() int {
	c.mu.Lock()
	r := c.trimLocked(true)
	c.mu.Unlock()

	c.report(r)
	return r.stale
}

// Stats returns a snapshot of the channel state.
func (c *Channel[S]) Stats() ChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ChannelStats{
		Service:      c.name,
		Count:        c.list.len(),
		Capacity:     c.list.capacity(),
		MaxLinks:     c.maxLinks,
		TrimCycles:   c.trimCycles,
		StaleRemoved: c.staleRemoved.Load(),
		Detached:     c.detached,
	}
}

type attachResult uint8

const (
	attachOK attachResult = iota
	attachFull
	attachDetached
)

func (c *Channel[S]) attach(l *Link[S]) attachResult {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return attachDetached
	}
	if c.list.len() >= c.maxLinks {
		c.mu.Unlock()
		return attachFull
	}

	l.ch = c
	c.list.add(l)

	var r trimReport
	c.opsSinceTrim++
	if c.opsSinceTrim >= c.trimThreshold {
		r = c.trimLocked(false)
	}
	c.mu.Unlock()

	c.listener.OnOpen(c.name, l.Weak())
	c.logger.Debug("broadcast link opened",
		logger.Component("broadcast"),
		logger.Service(c.name),
		logger.ChannelKey(c.key),
		logger.LinkID(l.id.String()),
		logger.Weak(l.Weak()))
	c.report(r)
	return attachOK
}

// detach removes l from the channel. state tells an explicit close from stale cleanup.
func (c *Channel[S]) detach(l *Link[S], state linkState) {
	c.mu.Lock()
	if !c.list.remove(l) {
		c.mu.Unlock()
		return
	}
	if state == linkStale {
		c.staleRemoved.Add(1)
	}
	evicted := c.evictIfEmptyLocked()
	c.mu.Unlock()

	if state == linkStale {
		c.listener.OnStale(c.name, 1)
		c.logger.Debug("stale weak link removed",
			logger.Component("broadcast"),
			logger.Service(c.name),
			logger.ChannelKey(c.key),
			logger.LinkID(l.id.String()))
	} else {
		c.listener.OnClose(c.name)
		c.logger.Debug("broadcast link closed",
			logger.Component("broadcast"),
			logger.Service(c.name),
			logger.ChannelKey(c.key),
			logger.LinkID(l.id.String()))
	}
	if evicted {
		c.reportEvicted()
	}
}

type trimReport struct {
	ran     bool
	before  int
	after   int
	stale   int
	evicted bool
}

func (c *Channel[S]) trimLocked(sweep bool) trimReport {
	c.opsSinceTrim = 0
	c.trimCycles++

	r := trimReport{ran: true, before: c.list.capacity()}
	if sweep || c.trimCycles%c.livenessInterval == 0 {
		r.stale = c.sweepLocked()
	}
	c.list.tryTrim()
	r.after = c.list.capacity()
	r.evicted = c.evictIfEmptyLocked()
	return r
}

// sweepLocked removes every weak link whose owner is gone.
func (c *Channel[S]) sweepLocked() int {
	arr, _ := c.list.snapshot()
	removed := 0
	for i := range arr.items {
		l := arr.items[i].Load()
		if l != nil && l.stale() && c.list.remove(l) {
			removed++
		}
	}
	if removed > 0 {
		c.staleRemoved.Add(int64(removed))
	}
	return removed
}

// evictIfEmptyLocked detaches an empty keyed channel from its map. A detached
// channel refuses new links, so openers retry on a fresh channel.
func (c *Channel[S]) evictIfEmptyLocked() bool {
	if c.evict == nil || c.detached || c.list.len() > 0 {
		return false
	}
	c.detached = true
	c.evict(c)
	return true
}

func (c *Channel[S]) report(r trimReport) {
	if !r.ran {
		return
	}
	if r.stale > 0 {
		c.listener.OnStale(c.name, r.stale)
	}
	c.listener.OnTrim(c.name, r.before, r.after)
	c.logger.Debug("broadcast channel trimmed",
		logger.Component("broadcast"),
		logger.Service(c.name),
		logger.ChannelKey(c.key),
		logger.Count("capacity_before", r.before),
		logger.Capacity(r.after),
		logger.Count("stale_removed", r.stale))
	if r.evicted {
		c.reportEvicted()
	}
}

func (c *Channel[S]) reportEvicted() {
	c.listener.OnEvict(c.name)
	c.logger.Debug("keyed channel evicted",
		logger.Component("broadcast"),
		logger.Service(c.name),
		logger.ChannelKey(c.key))
}

// forEach calls fn for every live subscriber of the current snapshot, in slot order,
// until fn returns false. Dead weak links found on the way are removed. Returns the
// number of subscribers fn was called for.
func (c *Channel[S]) forEach(fn func(S) bool) int {
	arr, _ := c.list.snapshot()
	n := 0
	for i := range arr.items {
		l := arr.items[i].Load()
		if l == nil {
			continue
		}

		svc, state := l.target()
		switch state {
		case linkDetached:
			continue
		case linkStale:
			c.detach(l, linkStale)
			continue
		}

		n++
		if !fn(svc) {
			break
		}
	}
	return n
}
