// Package broadcast is an in-process publish/subscribe registry for typed services.
//
// Receivers subscribe an implementation of a service interface and receive every call
// senders make through the service's broker, until they close their link or, for weak
// subscriptions, until they are garbage collected. Senders and receivers never hold
// references to each other.
//
// # Architecture
//
//   - Channel[S] holds the subscribers of service S in a slot array with O(1) add and
//     remove. Registration serializes on a per-channel mutex; dispatch iterates an
//     atomically published snapshot and never takes the lock.
//   - Link[S] is one subscription. Close is idempotent; a nil *Link is the invalid
//     handle returned when a channel is at capacity.
//   - KeyedChannelMap[K, S] partitions a service by key. Keyed channels evict themselves
//     when their last link closes; sends to unknown keys reach the shared empty channel.
//   - Registry maps service types to ChannelInfo records and memoizes keyed maps per
//     (service, key type). Default returns the process-wide registry.
//
// # Defining a Service
//
// A broker is a hand-written adapter that forwards each method to every live subscriber
// using Each, EachErr, Call, CallErr or CallAsync:
//
//	type Doubler interface {
//		Double(x int) int
//	}
//
//	type DoublerBroker struct{ ch *broadcast.Channel[Doubler] }
//
//	func (b DoublerBroker) Double(x int) broadcast.Result[int] {
//		return broadcast.Call(b.ch, func(d Doubler) int { return d.Double(x) })
//	}
//
//	func init() {
//		broadcast.MustRegister(broadcast.Default(), func(ch *broadcast.Channel[Doubler]) DoublerBroker {
//			return DoublerBroker{ch: ch}
//		})
//	}
//
// # Subscribing and Sending
//
//	link, err := broadcast.Subscribe[Doubler](broadcast.Default(), impl)
//	if err != nil {
//		return err // service not registered
//	}
//	defer link.Close()
//
//	b, err := broadcast.Send[Doubler, DoublerBroker](broadcast.Default())
//	results := b.Double(5) // one value per subscriber, in slot order
//
// Keyed channels only connect senders and receivers using the same key:
//
//	link, _ := broadcast.SubscribeKey[Doubler](reg, "tenant-1", impl)
//	b, _ := broadcast.SendKey[Doubler, DoublerBroker](reg, "tenant-1")
//
// # Weak Subscriptions
//
// OpenWeak, SubscribeWeak and their keyed variants hold the owner through a weak
// pointer. The bind function turns the owner into the service and must not capture it:
//
//	broadcast.SubscribeWeak(reg, view, func(v *View) Doubler { return v })
//
// Dead weak links are skipped and removed by the next dispatch that meets them, and by
// the liveness sweep that runs every LivenessInterval trim cycles.
//
// # Memory Reclamation
//
// Every TrimThreshold opens a channel tries to trim: an empty slot array is reset to
// MinCapacity, a less than half full one is reallocated smaller and its links re-indexed.
// Thresholds come from Config, which can be loaded from BROADCAST_* environment variables
// with ConfigFromEnv.
//
// # Error Handling
//
// Using a service type that was never registered fails with ErrNotRegistered. Capacity,
// dead subscribers and unknown keys are not errors: they show up as a nil link, a
// smaller receiver count or an empty Result. Errors and panics raised by subscribers are
// not isolated: the first one stops a synchronous fan-out and reaches the sender.
//
// # Ordering
//
// Subscribers are called in slot order, which is registration order until links close
// and their slots are reused. Concurrent sends each see a consistent snapshot; a send
// racing with Open may or may not reach the new subscriber.
package broadcast
