package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics exposes Go runtime health through the shared meter.
// The instruments are observable, so every collection reads current
// values and the end-of-run snapshot records process state alongside
// the conversion counters.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	heapAlloc  metric.Int64ObservableGauge
	heapSys    metric.Int64ObservableGauge
	gcCycles   metric.Int64ObservableCounter
	uptime     metric.Float64ObservableGauge

	started      time.Time
	registration metric.Registration
}

// RegisterRuntimeMetrics wires runtime instruments into the meter and
// starts observing them on every collection.
func RegisterRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	rm := &RuntimeMetrics{started: time.Now()}
	var err error

	rm.goroutines, err = meter.Int64ObservableGauge(
		"runtime_goroutines",
		metric.WithDescription("Number of live goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}

	rm.heapAlloc, err = meter.Int64ObservableGauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heap alloc gauge: %w", err)
	}

	rm.heapSys, err = meter.Int64ObservableGauge(
		"runtime_sys_bytes",
		metric.WithDescription("Bytes of memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sys memory gauge: %w", err)
	}

	rm.gcCycles, err = meter.Int64ObservableCounter(
		"runtime_gc_cycles_total",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}

	rm.uptime, err = meter.Float64ObservableGauge(
		"runtime_uptime_seconds",
		metric.WithDescription("Seconds since telemetry initialization"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	rm.registration, err = meter.RegisterCallback(rm.observe,
		rm.goroutines, rm.heapAlloc, rm.heapSys, rm.gcCycles, rm.uptime)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime callback: %w", err)
	}

	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, o metric.Observer) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	o.ObserveInt64(rm.goroutines, int64(runtime.NumGoroutine()))
	o.ObserveInt64(rm.heapAlloc, int64(ms.HeapAlloc))
	o.ObserveInt64(rm.heapSys, int64(ms.Sys))
	o.ObserveInt64(rm.gcCycles, int64(ms.NumGC))
	o.ObserveFloat64(rm.uptime, time.Since(rm.started).Seconds())
	return nil
}

// Unregister stops the collection callback.
func (rm *RuntimeMetrics) Unregister() error {
	if rm == nil || rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}
