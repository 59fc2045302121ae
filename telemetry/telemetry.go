// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package telemetry wires the ambient metrics concern (explicitly out of
// core scope per spec.md section 1, but a normal part of a production
// daemon) through github.com/armon/go-metrics, with an optional Prometheus
// sink registered alongside the in-memory sink, matching how Nomad exposes
// both a /v1/metrics endpoint and a Prometheus scrape target from the same
// emitted samples.
package telemetry

import (
	"time"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/prometheus"
)

// Emitter emits rttd's scheduler-facing counters, gauges, and timers. A nil
// *Emitter is safe to use and emits nothing, so components can take an
// *Emitter without a nil check at every call site.
type Emitter struct {
	labels []metrics.Label
}

// New constructs an Emitter and registers the global go-metrics sink with
// both an in-memory sink and a Prometheus sink. serviceName becomes the
// metric key prefix.
func New(serviceName string, labels []metrics.Label) (*Emitter, error) {
	promSink, err := prometheus.NewPrometheusSink()
	if err != nil {
		return nil, err
	}
	inmemSink := metrics.NewInmemSink(10*time.Second, time.Minute)
	fanout := metrics.FanoutSink{inmemSink, promSink}
	if _, err := metrics.NewGlobal(metrics.DefaultConfig(serviceName), fanout); err != nil {
		return nil, err
	}
	return &Emitter{labels: labels}, nil
}

// NoOp returns an Emitter that discards everything, for tests and for
// callers that don't want a process-global metrics sink installed.
func NoOp() *Emitter { return nil }

func (e *Emitter) IncrCounter(key []string, val float32) {
	if e == nil {
		return
	}
	metrics.IncrCounterWithLabels(key, val, e.labels)
}

func (e *Emitter) SetGauge(key []string, val float32) {
	if e == nil {
		return
	}
	metrics.SetGaugeWithLabels(key, val, e.labels)
}

func (e *Emitter) MeasureSince(key []string, start time.Time) {
	if e == nil {
		return
	}
	metrics.MeasureSinceWithLabels(key, start, e.labels)
}
