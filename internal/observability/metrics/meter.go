// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// OperationsCounter is the name of the counter of executed operations,
// labelled with operation and outcome.
const OperationsCounter = "teamskills.operations"

// Config holds metrics configuration
type Config struct {
	Enabled     bool
	ServiceName string
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a meter from the global provider, or a no-op meter when disabled.
func New(cfg Config) *Meter {
	if !cfg.Enabled {
		return &Meter{meter: noop.NewMeterProvider().Meter(cfg.ServiceName)}
	}
	return &Meter{meter: otel.Meter(cfg.ServiceName)}
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// Operations creates the counter used by operation.Runner.
func (m *Meter) Operations() (metric.Int64Counter, error) {
	return m.CreateCounter(OperationsCounter, "Permission and team operations by outcome")
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// RequestDuration creates the HTTP request latency histogram.
func (m *Meter) RequestDuration() (metric.Float64Histogram, error) {
	return m.CreateHistogram("teamskills.http.request.duration", "HTTP request latency", "ms")
}
