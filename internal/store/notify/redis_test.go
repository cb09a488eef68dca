package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBroadcaster(t *testing.T) *RedisBroadcaster {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBroadcasterWithClient(client)
}

func TestRedisBroadcasterRoundTrip(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx, func(event string) { received <- event })
	}()

	// Run establishes the subscription before consuming, but give the
	// goroutine a moment to reach it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := b.Publish(ctx, ProjectEvent("doc")); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case ev := <-received:
			if ev != "project:doc" {
				t.Fatalf("event = %q, want project:doc", ev)
			}
			cancel()
			<-done
			return
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for the published event")
			}
		}
	}
}

func TestRedisBroadcasterStopsOnCancel(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, func(string) {}) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestHubPublishDoesNotBlock(t *testing.T) {
	h := NewHub()
	ch, cancelSub := h.Subscribe()
	defer cancelSub()

	// Fill the subscriber buffer and keep publishing; drops coalesce rather
	// than block the writer.
	for i := 0; i < 200; i++ {
		h.Publish(TopicProjects)
	}

	select {
	case ev := <-ch:
		if ev != TopicProjects {
			t.Fatalf("event = %q", ev)
		}
	default:
		t.Fatal("no event buffered")
	}
}

func TestWatchDeliversInitialLoad(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loads := 0
	ch := Watch(ctx, h,
		func(ev string) bool { return ev == TopicMembers },
		func(context.Context) (int, bool) {
			loads++
			return loads, true
		})

	select {
	case v := <-ch:
		if v != 1 {
			t.Fatalf("initial load = %d, want 1", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial delivery")
	}

	// Non-matching events are ignored; matching events trigger a reload.
	h.Publish(TopicProjects)
	h.Publish(TopicMembers)
	select {
	case v := <-ch:
		if v != 2 {
			t.Fatalf("reload = %d, want 2", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery after matching event")
	}
}
