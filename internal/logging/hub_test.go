package logging

import (
	"testing"
	"time"

	"multiagents/internal/event"
)

func TestLogHubBroadcast(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	entry := LogEntry{Message: "hello"}
	hub.Broadcast(entry)

	select {
	case got := <-ch:
		if got.Message != "hello" {
			t.Fatalf("expected message hello, got %q", got.Message)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timed out waiting for log entry")
	}
}

func TestLogHubClose(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe(1)
	cancel()
	hub.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel closed")
		}
	default:
	}
}

func TestLogHubBroadcastMultipleSubscribers(t *testing.T) {
	hub := NewLogHub()
	defer hub.Close()

	chA, cancelA := hub.Subscribe(4)
	defer cancelA()
	chB, cancelB := hub.Subscribe(4)
	defer cancelB()

	collector := event.NewEventCollector[LogEntry]()
	done := make(chan struct{})
	go func() {
		collector.Collect(event.ReceiveWithTimeout(t, chB, time.Second))
		close(done)
	}()

	hub.Broadcast(LogEntry{Message: "fan-out"})

	got := event.ReceiveWithTimeout(t, chA, time.Second)
	if got.Message != "fan-out" {
		t.Fatalf("expected fan-out message on first subscriber, got %q", got.Message)
	}

	<-done
	events := collector.Events()
	if len(events) != 1 || events[0].Message != "fan-out" {
		t.Fatalf("expected second subscriber to collect one fan-out event, got %+v", events)
	}
}
