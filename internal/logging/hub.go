package logging

import (
	"context"

	"multiagents/internal/event"
)

// LogHub fans out LogEntry values to live subscribers (e.g. the
// `gestalt logs tail` command), backed by the same bounded-buffer,
// drop-counting Bus used for config snapshot change notifications.
type LogHub struct {
	bus *event.Bus[LogEntry]
}

func NewLogHub() *LogHub {
	return &LogHub{bus: event.NewBus[LogEntry](context.Background(), event.BusOptions{Name: "log_entries"})}
}

// Subscribe returns a channel of future log entries and an unsubscribe
// func. The buffer argument is not used: every subscriber gets the Bus's
// default subscriber buffer size, whatever value is passed.
func (h *LogHub) Subscribe(buffer int) (<-chan LogEntry, func()) {
	if h == nil || h.bus == nil {
		ch := make(chan LogEntry)
		close(ch)
		return ch, func() {}
	}
	return h.bus.Subscribe()
}

func (h *LogHub) Broadcast(entry LogEntry) {
	if h == nil || h.bus == nil {
		return
	}
	h.bus.Publish(entry)
}

func (h *LogHub) Close() {
	if h == nil || h.bus == nil {
		return
	}
	h.bus.Close()
}
