package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Registry struct {
	runsStarted   atomic.Int64
	runsCompleted atomic.Int64
	runsFailed    atomic.Int64
	runsTimedOut  atomic.Int64
	broadcasts    sync.Map
	eventBuses    sync.Map
}

type eventBusStats struct {
	published           sync.Map
	dropped             sync.Map
	filteredSubscribers atomic.Int64
	subscribers         atomic.Int64
}

type broadcastStats struct {
	targets       atomic.Int64
	failures      atomic.Int64
	retries       atomic.Int64
	durationNanos atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncRunStarted() {
	if r == nil {
		return
	}
	r.runsStarted.Add(1)
}

func (r *Registry) IncRunCompleted() {
	if r == nil {
		return
	}
	r.runsCompleted.Add(1)
}

func (r *Registry) IncRunFailed() {
	if r == nil {
		return
	}
	r.runsFailed.Add(1)
}

func (r *Registry) IncRunTimedOut() {
	if r == nil {
		return
	}
	r.runsTimedOut.Add(1)
}

// RecordBroadcast records one target's outcome within a broadcast, keyed
// by provider so per-provider fan-out cost is visible.
func (r *Registry) RecordBroadcast(providerKey string, duration time.Duration, err error, attempt int32) {
	if r == nil {
		return
	}
	if strings.TrimSpace(providerKey) == "" {
		providerKey = "unknown"
	}
	stats := r.broadcastStats(providerKey)
	stats.targets.Add(1)
	stats.durationNanos.Add(duration.Nanoseconds())
	if err != nil {
		stats.failures.Add(1)
	}
	if attempt > 1 {
		stats.retries.Add(1)
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "multiagents_runs_started_total", "Total one-shot runs started", r.runsStarted.Load())
	writeCounter(writer, "multiagents_runs_completed_total", "Total one-shot runs completed", r.runsCompleted.Load())
	writeCounter(writer, "multiagents_runs_failed_total", "Total one-shot runs failed", r.runsFailed.Load())
	writeCounter(writer, "multiagents_runs_timed_out_total", "Total one-shot runs timed out", r.runsTimedOut.Load())

	providerKeys := r.providerKeys()
	sort.Strings(providerKeys)

	writeHelp(writer, "multiagents_broadcast_target_duration_seconds", "Per-target broadcast dispatch duration in seconds")
	fmt.Fprintln(writer, "# TYPE multiagents_broadcast_target_duration_seconds summary")
	writeHelp(writer, "multiagents_broadcast_target_failures_total", "Per-target broadcast dispatch failures")
	fmt.Fprintln(writer, "# TYPE multiagents_broadcast_target_failures_total counter")
	writeHelp(writer, "multiagents_broadcast_target_retries_total", "Per-target broadcast dispatch retries")
	fmt.Fprintln(writer, "# TYPE multiagents_broadcast_target_retries_total counter")

	for _, key := range providerKeys {
		stats := r.broadcastStats(key)
		label := formatLabel(key)
		durationSeconds := float64(stats.durationNanos.Load()) / float64(time.Second)
		fmt.Fprintf(writer, "multiagents_broadcast_target_duration_seconds_sum{provider=%s} %.6f\n", label, durationSeconds)
		fmt.Fprintf(writer, "multiagents_broadcast_target_duration_seconds_count{provider=%s} %d\n", label, stats.targets.Load())
		fmt.Fprintf(writer, "multiagents_broadcast_target_failures_total{provider=%s} %d\n", label, stats.failures.Load())
		fmt.Fprintf(writer, "multiagents_broadcast_target_retries_total{provider=%s} %d\n", label, stats.retries.Load())
	}

	busNames := r.busNames()
	sort.Strings(busNames)

	writeHelp(writer, "multiagents_events_published_total", "Total events published per bus and type")
	fmt.Fprintln(writer, "# TYPE multiagents_events_published_total counter")
	writeHelp(writer, "multiagents_events_dropped_total", "Total events dropped per bus and type")
	fmt.Fprintln(writer, "# TYPE multiagents_events_dropped_total counter")
	writeHelp(writer, "multiagents_event_subscribers", "Current subscriber count per bus and filter state")
	fmt.Fprintln(writer, "# TYPE multiagents_event_subscribers gauge")

	for _, name := range busNames {
		stats := r.eventBusStats(name)
		busLabel := formatLabel(name)
		stats.published.Range(func(key, value interface{}) bool {
			eventType := key.(string)
			count := value.(*atomic.Int64).Load()
			fmt.Fprintf(writer, "multiagents_events_published_total{bus=%s,type=%s} %d\n", busLabel, formatLabel(eventType), count)
			return true
		})
		stats.dropped.Range(func(key, value interface{}) bool {
			eventType := key.(string)
			count := value.(*atomic.Int64).Load()
			fmt.Fprintf(writer, "multiagents_events_dropped_total{bus=%s,type=%s} %d\n", busLabel, formatLabel(eventType), count)
			return true
		})
		fmt.Fprintf(writer, "multiagents_event_subscribers{bus=%s,filtered=\"true\"} %d\n", busLabel, stats.filteredSubscribers.Load())
		fmt.Fprintf(writer, "multiagents_event_subscribers{bus=%s,filtered=\"false\"} %d\n", busLabel, stats.subscribers.Load())
	}

	return nil
}

// IncEventPublished records one event published on busName with the
// given event type, for Prometheus export.
func (r *Registry) IncEventPublished(busName, eventType string) {
	if r == nil {
		return
	}
	r.eventBusStats(busName).counter(&r.eventBusStats(busName).published, eventType).Add(1)
}

// IncEventDropped records one event dropped on busName with the given
// event type.
func (r *Registry) IncEventDropped(busName, eventType string) {
	if r == nil {
		return
	}
	r.eventBusStats(busName).counter(&r.eventBusStats(busName).dropped, eventType).Add(1)
}

// SetEventSubscriberCounts sets the current filtered/unfiltered
// subscriber gauges for busName.
func (r *Registry) SetEventSubscriberCounts(busName string, filtered, unfiltered int) {
	if r == nil {
		return
	}
	stats := r.eventBusStats(busName)
	stats.filteredSubscribers.Store(int64(filtered))
	stats.subscribers.Store(int64(unfiltered))
}

func (stats *eventBusStats) counter(m *sync.Map, key string) *atomic.Int64 {
	value, _ := m.LoadOrStore(key, &atomic.Int64{})
	return value.(*atomic.Int64)
}

func (r *Registry) eventBusStats(busName string) *eventBusStats {
	value, _ := r.eventBuses.LoadOrStore(busName, &eventBusStats{})
	return value.(*eventBusStats)
}

func (r *Registry) busNames() []string {
	if r == nil {
		return nil
	}
	var names []string
	r.eventBuses.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			names = append(names, name)
		}
		return true
	})
	return names
}

func (r *Registry) broadcastStats(providerKey string) *broadcastStats {
	value, _ := r.broadcasts.LoadOrStore(providerKey, &broadcastStats{})
	return value.(*broadcastStats)
}

func (r *Registry) providerKeys() []string {
	if r == nil {
		return nil
	}
	var keys []string
	r.broadcasts.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			keys = append(keys, name)
		}
		return true
	})
	return keys
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
