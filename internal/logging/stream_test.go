package logging

import (
	"context"
	"testing"
	"time"
)

func TestStreamHubPublishAssignsSequence(t *testing.T) {
	hub := NewStreamHub(8)
	hub.Publish(LogEvent{Message: "first"})
	hub.Publish(LogEvent{Message: "second"})

	events, next, err := hub.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Sequence != 1 || events[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d; want 1, 2", events[0].Sequence, events[1].Sequence)
	}
	if next != 2 {
		t.Errorf("next = %d, want 2", next)
	}
}

func TestStreamHubDropsOldestAtCapacity(t *testing.T) {
	hub := NewStreamHub(2)
	hub.Publish(LogEvent{Message: "a"})
	hub.Publish(LogEvent{Message: "b"})
	hub.Publish(LogEvent{Message: "c"})

	events, _, err := hub.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Message != "b" || events[1].Message != "c" {
		t.Errorf("buffer = %q, %q; want b, c", events[0].Message, events[1].Message)
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(8)
	hub.Publish(LogEvent{Message: "a"})
	hub.Publish(LogEvent{Message: "b"})

	events, _, err := hub.Fetch(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Message != "b" {
		t.Fatalf("Fetch(since=1) = %+v, want only b", events)
	}
}

func TestStreamHubFetchPagesThroughBacklog(t *testing.T) {
	hub := NewStreamHub(16)
	for i := 0; i < 10; i++ {
		hub.Publish(LogEvent{Message: "line"})
	}

	var cursor uint64
	var got int
	for {
		events, next, err := hub.Fetch(context.Background(), cursor, 3, false)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(events) == 0 {
			break
		}
		for _, evt := range events {
			if evt.Sequence != uint64(got+1) {
				t.Fatalf("sequence = %d, want %d", evt.Sequence, got+1)
			}
			got++
		}
		if next != events[len(events)-1].Sequence {
			t.Fatalf("next = %d, want last returned sequence %d", next, events[len(events)-1].Sequence)
		}
		cursor = next
	}
	if got != 10 {
		t.Errorf("paged fetch delivered %d events, want 10", got)
	}
}

func TestStreamHubFetchWaitWakesOnPublish(t *testing.T) {
	hub := NewStreamHub(8)
	done := make(chan []LogEvent, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 10, true)
		done <- events
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(LogEvent{Message: "wake"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Message != "wake" {
			t.Fatalf("got %+v, want single wake event", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake on publish")
	}
}

func TestStreamHubFetchWaitRespectsContext(t *testing.T) {
	hub := NewStreamHub(8)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, 10, true)
	if err == nil {
		t.Fatal("expected context error from blocked Fetch")
	}
}

func TestStreamHandlerTagsExecution(t *testing.T) {
	hub := NewStreamHub(8)
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{"stdout"}, Hub: hub})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	WithExecution(NewComponentLogger(logger, "runner"), "exec-123").Info("task started", String("extra", "v"))

	events, _, err := hub.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	evt := events[0]
	if evt.ExecutionID != "exec-123" {
		t.Errorf("ExecutionID = %q, want exec-123", evt.ExecutionID)
	}
	if evt.Component != "runner" {
		t.Errorf("Component = %q, want runner", evt.Component)
	}
	if evt.Fields["extra"] != "v" {
		t.Errorf("Fields[extra] = %q, want v", evt.Fields["extra"])
	}
}
