// Package metrics exposes engine diagnostics to prometheus. A nil *Collector
// is valid and records nothing, so headless runs and tests can skip it.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "danmaku"

type Collector struct {
	spawns    *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	retired   *prometheus.CounterVec
	active    *prometheus.GaugeVec
	ticks     prometheus.Counter
	collision *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Each Simulation
// should get its own registry if several run in one process.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawns_total",
			Help:      "Entities allocated from the pool.",
		}, []string{"category"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawns_dropped_total",
			Help:      "Spawn requests dropped because the category pool was full.",
		}, []string{"category"}),
		retired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retired_total",
			Help:      "Entities returned to the pool.",
		}, []string{"category", "reason"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_entities",
			Help:      "Active entities at the end of the last tick.",
		}, []string{"category"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Simulation ticks run.",
		}),
		collision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collisions_total",
			Help:      "Resolved collision pairs by rule.",
		}, []string{"rule"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.spawns, c.dropped, c.retired, c.active, c.ticks, c.collision} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) Spawned(category string) {
	if c == nil {
		return
	}
	c.spawns.WithLabelValues(category).Inc()
}

func (c *Collector) Dropped(category string) {
	if c == nil {
		return
	}
	c.dropped.WithLabelValues(category).Inc()
}

func (c *Collector) Retired(category, reason string) {
	if c == nil {
		return
	}
	c.retired.WithLabelValues(category, reason).Inc()
}

func (c *Collector) SetActive(category string, n int) {
	if c == nil {
		return
	}
	c.active.WithLabelValues(category).Set(float64(n))
}

func (c *Collector) Tick() {
	if c == nil {
		return
	}
	c.ticks.Inc()
}

func (c *Collector) Collision(rule string) {
	if c == nil {
		return
	}
	c.collision.WithLabelValues(rule).Inc()
}
