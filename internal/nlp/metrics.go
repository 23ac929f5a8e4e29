package nlp

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/aml/internal/model"
)

// metrics counts adapter work. Counters are shared when several adapters
// register against the same registerer.
type metrics struct {
	passes    *prometheus.CounterVec
	points    prometheus.Counter
	callbacks *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	return &metrics{
		passes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tape_passes_total",
			Help:      "Tape walks by kind (forward, reverse, second_order).",
		}, []string{"pass"})),
		points: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_total",
			Help:      "Distinct primal points evaluated.",
		})),
		callbacks: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Solver callbacks served by kind.",
		}, []string{"callback"})),
	}
}

func (mt *metrics) observePass(p model.Pass) {
	mt.passes.WithLabelValues(p.String()).Inc()
}

func (mt *metrics) callback(name string) {
	mt.callbacks.WithLabelValues(name).Inc()
}

// register adds c to reg, returning the already registered collector when
// an identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
