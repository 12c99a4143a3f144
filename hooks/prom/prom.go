// Package promhook counts cache lifecycle events with Prometheus.
package promhook

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/cardcache"
)

const namespace = "cardcache"

type Hooks struct {
	applied    *prometheus.CounterVec
	patched    *prometheus.CounterVec
	settled    *prometheus.CounterVec
	cancelled  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	staleWrite *prometheus.CounterVec
	shape      *prometheus.CounterVec
}

var _ cardcache.Hooks = (*Hooks)(nil)

// New registers the counters on reg. A nil reg means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}
	h := &Hooks{
		applied:    counter("mutations_applied_total", "Optimistic mutations applied.", "kind"),
		patched:    counter("entries_patched_total", "Cache entries rewritten by optimistic patches.", "kind"),
		settled:    counter("mutations_settled_total", "Mutations that reached a terminal state.", "kind", "outcome"),
		cancelled:  counter("fetches_cancelled_total", "In-flight fetches cancelled by a mutation.", "collection"),
		failed:     counter("fetches_failed_total", "Fetches that failed.", "collection"),
		staleWrite: counter("stale_writes_skipped_total", "Fetch results dropped by the generation fence.", "collection"),
		shape:      counter("shape_rejections_total", "Writes refused for changing a key's shape.", "collection"),
	}
	for _, c := range []prometheus.Collector{h.applied, h.patched, h.settled, h.cancelled, h.failed, h.staleWrite, h.shape} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// collection keeps label cardinality bounded: "paged?page=2" counts as "paged".
func collection(key string) string {
	c, _, _ := strings.Cut(key, "?")
	return c
}

func (h *Hooks) MutationApplied(kind cardcache.Kind, _ string, patched int) {
	h.applied.WithLabelValues(kind.String()).Inc()
	h.patched.WithLabelValues(kind.String()).Add(float64(patched))
}

func (h *Hooks) MutationSettled(kind cardcache.Kind, _ string, outcome cardcache.Outcome, _ error) {
	h.settled.WithLabelValues(kind.String(), string(outcome)).Inc()
}

func (h *Hooks) FetchCancelled(key string) { h.cancelled.WithLabelValues(collection(key)).Inc() }
func (h *Hooks) FetchFailed(key string, _ error) {
	h.failed.WithLabelValues(collection(key)).Inc()
}
func (h *Hooks) StaleWriteSkipped(key string) { h.staleWrite.WithLabelValues(collection(key)).Inc() }
func (h *Hooks) ShapeRejected(key string, _, _ cardcache.Shape) {
	h.shape.WithLabelValues(collection(key)).Inc()
}
