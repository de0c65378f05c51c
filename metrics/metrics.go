// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "retipool"

// Metrics default to noop so library users never need a registry; the node
// binary calls InitializePrometheusMetrics before wiring anything up.

var (
	enabled  = false
	initOnce sync.Once
	registry = prometheus.NewRegistry()
)

// InitializePrometheusMetrics switches metrics from noop to prometheus.
func InitializePrometheusMetrics() {
	initOnce.Do(func() {
		enabled = true
	})
}

// HTTPHandler serves the /metrics endpoint.
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// CountVec is a labeled counter.
type CountVec interface {
	AddWithLabel(value int64, labels map[string]string)
}

// GaugeVec is a labeled gauge.
type GaugeVec interface {
	SetWithLabel(value int64, labels map[string]string)
}

// Counter creates a labeled counter. Metrics declared before
// initialization stay noop until InitializePrometheusMetrics is called.
func Counter(name string, labelNames ...string) CountVec {
	return &promCountVec{name: name, labelNames: labelNames}
}

// Gauge creates a labeled gauge, lazily registered like Counter.
func Gauge(name string, labelNames ...string) GaugeVec {
	return &promGaugeVec{name: name, labelNames: labelNames}
}

type promCountVec struct {
	once       sync.Once
	name       string
	labelNames []string
	vec        *prometheus.CounterVec
}

func (c *promCountVec) AddWithLabel(value int64, labels map[string]string) {
	if !enabled {
		return
	}
	c.once.Do(func() {
		c.vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      c.name,
		}, c.labelNames)
		registry.MustRegister(c.vec)
	})
	c.vec.With(labels).Add(float64(value))
}

type promGaugeVec struct {
	once       sync.Once
	name       string
	labelNames []string
	vec        *prometheus.GaugeVec
}

func (g *promGaugeVec) SetWithLabel(value int64, labels map[string]string) {
	if !enabled {
		return
	}
	g.once.Do(func() {
		g.vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      g.name,
		}, g.labelNames)
		registry.MustRegister(g.vec)
	})
	g.vec.With(labels).Set(float64(value))
}
