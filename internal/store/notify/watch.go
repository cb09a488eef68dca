package notify

import "context"

// Watch subscribes to the hub and returns a channel that carries the result
// of load on subscribe and again after every matching event. The channel
// closes when ctx is cancelled. load returning ok=false skips the send
// (transient read failure); the next event retries.
func Watch[T any](ctx context.Context, h *Hub, match func(event string) bool, load func(context.Context) (T, bool)) <-chan T {
	events, cancel := h.Subscribe()
	out := make(chan T, 8)

	go func() {
		defer cancel()
		defer close(out)

		if v, ok := load(ctx); ok {
			if !send(ctx, out, v) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !match(ev) {
					continue
				}
				v, ok := load(ctx)
				if !ok {
					continue
				}
				if !send(ctx, out, v) {
					return
				}
			}
		}
	}()

	return out
}

func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
