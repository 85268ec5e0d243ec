package broadcast

import (
	"sync/atomic"

	"github.com/google/uuid"
)

type linkState uint8

const (
	linkLive linkState = iota
	linkDetached
	linkStale
)

// Link is one subscription to a channel. It is returned by Open and released by Close.
// A nil *Link is the invalid handle returned when a channel refuses a subscription;
// all methods are safe to call on it.
type Link[S any] struct {
	id    uuid.UUID
	index atomic.Int64 // slot position, -1 once detached
	ch    *Channel[S]

	svc     S
	resolve func() (S, bool) // non-nil for weak links
}

func newStrongLink[S any](svc S) *Link[S] {
	l := &Link[S]{id: uuid.New(), svc: svc}
	l.index.Store(-1)
	return l
}

func newWeakLink[S any](resolve func() (S, bool)) *Link[S] {
	l := &Link[S]{id: uuid.New(), resolve: resolve}
	l.index.Store(-1)
	return l
}

// ID returns the subscription identifier, or uuid.Nil for the invalid handle.
func (l *Link[S]) ID() uuid.UUID {
	if l == nil {
		return uuid.Nil
	}
	return l.id
}

// Valid reports whether the link is still attached to its channel.
func (l *Link[S]) Valid() bool {
	return l != nil && l.index.Load() >= 0
}

// Weak reports whether the link holds its subscriber through a weak reference.
func (l *Link[S]) Weak() bool {
	return l != nil && l.resolve != nil
}

// Channel returns the channel the link was opened on, or nil for the invalid handle.
func (l *Link[S]) Channel() *Channel[S] {
	if l == nil {
		return nil
	}
	return l.ch
}

// Target resolves the subscriber. It fails when the link is detached or its weak owner is gone.
func (l *Link[S]) Target() (S, bool) {
	if l == nil {
		var zero S
		return zero, false
	}
	svc, state := l.target()
	return svc, state == linkLive
}

// Close unsubscribes the link. It is idempotent and safe on the invalid handle.
func (l *Link[S]) Close() error {
	if l == nil || l.ch == nil {
		return nil
	}
	l.ch.detach(l, linkDetached)
	return nil
}

func (l *Link[S]) target() (S, linkState) {
	var zero S
	if l.index.Load() < 0 {
		return zero, linkDetached
	}
	if l.resolve == nil {
		return l.svc, linkLive
	}
	svc, ok := l.resolve()
	if !ok {
		return zero, linkStale
	}
	return svc, linkLive
}

func (l *Link[S]) stale() bool {
	if l.resolve == nil {
		return false
	}
	_, ok := l.resolve()
	return !ok
}
