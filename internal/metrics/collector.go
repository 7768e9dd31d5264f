// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/embyclean/embyclean/internal/buildinfo"
)

// Collector holds the application counters on a private registry.
type Collector struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	cleanups      *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "embyclean_build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"version": buildinfo.Version, "commit": buildinfo.Commit},
	}, func() float64 { return 1 })

	return &Collector{
		registry: reg,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "embyclean_events_total",
			Help: "Inbound media server events by source and dispatch status",
		}, []string{"source", "kind"}),
		cleanups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "embyclean_cleanups_total",
			Help: "Cleanup pipeline runs by result",
		}, []string{"result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "embyclean_notifications_total",
			Help: "Notification deliveries by success",
		}, []string{"result"}),
	}
}

func (c *Collector) ObserveEvent(source, status string) {
	c.events.WithLabelValues(source, status).Inc()
}

func (c *Collector) ObserveCleanup(kind string) {
	c.cleanups.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveNotification(success bool) {
	c.notifications.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
