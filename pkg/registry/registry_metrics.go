/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	registryMeterName = "beaconradar.registry"

	metricEndpointCountName     = "registry_endpoint_count"
	metricListenerCountName     = "registry_listener_count"
	metricDispatchQueueName     = "registry_dispatch_queue_depth"
	metricObservationsTotalName = "registry_observations_total"
	metricEvictionsTotalName    = "registry_evictions_total"
)

// registryMetricsObservatory stores the latest registry measurements.
type registryMetricsObservatory struct {
	endpointCount atomic.Int64
	listenerCount atomic.Int64
	queueDepth    atomic.Int64
}

var (
	//nolint:gochecknoglobals // metric observers are shared singletons
	registryMetricsOnce sync.Once
	//nolint:gochecknoglobals // metric observers are shared singletons
	registryMetricsData = &registryMetricsObservatory{}
	//nolint:gochecknoglobals // metric observers are shared singletons
	registryMetricsInstruments struct {
		endpointCount metric.Int64ObservableGauge
		listenerCount metric.Int64ObservableGauge
		queueDepth    metric.Int64ObservableGauge
		observations  metric.Int64Counter
		evictions     metric.Int64Counter
	}
	registryMetricsRegistration metric.Registration //nolint:unused,gochecknoglobals // kept to retain callback
)

func initRegistryMetrics() {
	meter := otel.Meter(registryMeterName)

	var err error

	registryMetricsInstruments.endpointCount, err = meter.Int64ObservableGauge(
		metricEndpointCountName,
		metric.WithDescription("Number of endpoints currently in the registry"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsInstruments.listenerCount, err = meter.Int64ObservableGauge(
		metricListenerCountName,
		metric.WithDescription("Number of registered registry listeners"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsInstruments.queueDepth, err = meter.Int64ObservableGauge(
		metricDispatchQueueName,
		metric.WithDescription("Events waiting for delivery to registry listeners"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsInstruments.observations, err = meter.Int64Counter(
		metricObservationsTotalName,
		metric.WithDescription("Scan observations processed, by outcome"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsInstruments.evictions, err = meter.Int64Counter(
		metricEvictionsTotalName,
		metric.WithDescription("Endpoints evicted by the inactivity sweep"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(registryMetricsInstruments.endpointCount, registryMetricsData.endpointCount.Load())
		observer.ObserveInt64(registryMetricsInstruments.listenerCount, registryMetricsData.listenerCount.Load())
		observer.ObserveInt64(registryMetricsInstruments.queueDepth, registryMetricsData.queueDepth.Load())
		return nil
	},
		registryMetricsInstruments.endpointCount,
		registryMetricsInstruments.listenerCount,
		registryMetricsInstruments.queueDepth,
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsRegistration = registration
}

func recordEndpointCount(n int) {
	registryMetricsOnce.Do(initRegistryMetrics)
	registryMetricsData.endpointCount.Store(int64(n))
}

func recordListenerCount(n int) {
	registryMetricsOnce.Do(initRegistryMetrics)
	registryMetricsData.listenerCount.Store(int64(n))
}

func recordQueueDepth(n int) {
	registryMetricsOnce.Do(initRegistryMetrics)
	registryMetricsData.queueDepth.Store(int64(n))
}

func recordObservation(outcome string) {
	registryMetricsOnce.Do(initRegistryMetrics)

	if registryMetricsInstruments.observations != nil {
		registryMetricsInstruments.observations.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func recordEvictions(n int) {
	registryMetricsOnce.Do(initRegistryMetrics)

	if registryMetricsInstruments.evictions != nil && n > 0 {
		registryMetricsInstruments.evictions.Add(context.Background(), int64(n))
	}
}
