package broadcast_test

import (
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/dmitrymomot/relay/pkg/broadcast"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type doubler interface {
	Double(x int) int
}

type doublerFunc func(x int) int

func (f doublerFunc) Double(x int) int { return f(x) }

func double(x int) int { return x * 2 }

type doublerBroker struct {
	ch *broadcast.Channel[doubler]
}

func newDoublerBroker(ch *broadcast.Channel[doubler]) *doublerBroker {
	return &doublerBroker{ch: ch}
}

func (b *doublerBroker) Double(x int) broadcast.Result[int] {
	return broadcast.Call(b.ch, func(d doubler) int { return d.Double(x) })
}

// notifier returns nothing, so its broker can implement the service itself.
type notifier interface {
	Notify(msg string)
}

type notifierBroker struct {
	ch *broadcast.Channel[notifier]
}

func (b notifierBroker) Notify(msg string) {
	b.ch.Each(func(n notifier) { n.Notify(msg) })
}

func newNotifierBroker(ch *broadcast.Channel[notifier]) notifier {
	return notifierBroker{ch: ch}
}

// inbox is a notifier that records what it receives.
type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (i *inbox) Notify(msg string) {
	i.mu.Lock()
	i.msgs = append(i.msgs, msg)
	i.mu.Unlock()
}

func (i *inbox) received() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.msgs...)
}

// recorder appends its id to a shared log on every call.
type recorder struct {
	id  int
	log *[]int
}

func (r recorder) Double(x int) int {
	*r.log = append(*r.log, r.id)
	return x * 2
}

// viewModel is a weak subscriber. The slice field keeps it out of the tiny allocator
// so the collector can free it independently.
type viewModel struct {
	data []int
}

func (v *viewModel) Double(x int) int { return x * 2 }

// openWeakView subscribes a viewModel that nothing else references.
//
//go:noinline
func openWeakView(c *broadcast.Channel[doubler]) *broadcast.Link[doubler] {
	return broadcast.OpenWeak[doubler](c, &viewModel{data: make([]int, 8)}, nil)
}

//go:noinline
func openWeakViewKey(m *broadcast.KeyedChannelMap[string, doubler], key string) *broadcast.Link[doubler] {
	return broadcast.OpenWeakKey[string, doubler](m, key, &viewModel{data: make([]int, 8)}, nil)
}

func closeAll[S any](t *testing.T, links ...*broadcast.Link[S]) {
	t.Helper()
	for _, l := range links {
		if err := l.Close(); err != nil {
			t.Fatalf("close link: %v", err)
		}
	}
}
