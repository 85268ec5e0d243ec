// Package metrics exports broadcast channel activity as Prometheus metrics.
//
//	l, err := metrics.NewListener(prometheus.DefaultRegisterer)
//	if err != nil {
//		return err
//	}
//	reg := broadcast.NewRegistry(broadcast.WithListener(l))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/relay/pkg/broadcast"
)

const defaultNamespace = "broadcast"

var _ broadcast.Listener = (*Listener)(nil)

// Listener implements broadcast.Listener with Prometheus collectors labelled by service.
type Listener struct {
	opens     *prometheus.CounterVec
	closes    *prometheus.CounterVec
	sends     *prometheus.CounterVec
	receivers *prometheus.HistogramVec
	trims     *prometheus.CounterVec
	stale     *prometheus.CounterVec
	evictions *prometheus.CounterVec
	links     *prometheus.GaugeVec
}

// Option configures a Listener.
type Option func(*options)

type options struct {
	namespace string
	buckets   []float64
}

// WithNamespace sets the metric namespace. Default is "broadcast".
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithReceiverBuckets sets the histogram buckets for receivers per send.
func WithReceiverBuckets(buckets ...float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// NewListener creates the collectors and registers them with reg.
func NewListener(reg prometheus.Registerer, opts ...Option) (*Listener, error) {
	o := options{
		namespace: defaultNamespace,
		buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
	}
	for _, opt := range opts {
		opt(&o)
	}

	labels := []string{"service"}
	l := &Listener{
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "links_opened_total",
			Help:      "Subscriptions opened, by link kind.",
		}, []string{"service", "kind"}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "links_closed_total",
			Help:      "Subscriptions closed explicitly.",
		}, labels),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "sends_total",
			Help:      "Fan-out dispatches.",
		}, labels),
		receivers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "receivers_per_send",
			Help:      "Subscribers reached by one dispatch.",
			Buckets:   o.buckets,
		}, labels),
		trims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "trims_total",
			Help:      "Trim cycles run.",
		}, labels),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "stale_links_removed_total",
			Help:      "Weak subscriptions removed after their owner was collected.",
		}, labels),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "keyed_channels_evicted_total",
			Help:      "Keyed channels removed after their last subscription closed.",
		}, labels),
		links: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "links",
			Help:      "Currently attached subscriptions.",
		}, labels),
	}

	for _, c := range []prometheus.Collector{
		l.opens, l.closes, l.sends, l.receivers, l.trims, l.stale, l.evictions, l.links,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Listener) OnOpen(service string, weak bool) {
	kind := "strong"
	if weak {
		kind = "weak"
	}
	l.opens.WithLabelValues(service, kind).Inc()
	l.links.WithLabelValues(service).Inc()
}

func (l *Listener) OnClose(service string) {
	l.closes.WithLabelValues(service).Inc()
	l.links.WithLabelValues(service).Dec()
}

func (l *Listener) OnSend(service string, receivers int) {
	l.sends.WithLabelValues(service).Inc()
	l.receivers.WithLabelValues(service).Observe(float64(receivers))
}

func (l *Listener) OnTrim(service string, _, _ int) {
	l.trims.WithLabelValues(service).Inc()
}

func (l *Listener) OnStale(service string, removed int) {
	l.stale.WithLabelValues(service).Add(float64(removed))
	l.links.WithLabelValues(service).Sub(float64(removed))
}

func (l *Listener) OnEvict(service string) {
	l.evictions.WithLabelValues(service).Inc()
}
