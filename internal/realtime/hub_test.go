package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakeSub struct {
	mu        sync.Mutex
	opened    int
	cancelled int
}

func (f *fakeSub) SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (func(), error) {
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cancelled++
		f.mu.Unlock()
	}, nil
}

func newTestClient(eventID uuid.UUID) *Client {
	return &Client{
		ID:      uuid.New().String(),
		EventID: eventID,
		send:    make(chan WSMessage, 16),
	}
}

func TestHub_BroadcastReachesRoomMembers(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	a := newTestClient(eventID)
	b := newTestClient(eventID)
	other := newTestClient(uuid.New())
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.Broadcast(eventID, "capacity", map[string]int{"confirmed": 3})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Event != "capacity" {
				t.Errorf("event = %q, want capacity", msg.Event)
			}
		default:
			t.Error("room member received nothing")
		}
	}
	select {
	case <-other.send:
		t.Error("client in another room received the broadcast")
	default:
	}

	hub.Unregister(a)
	hub.Broadcast(eventID, "capacity", nil)
	select {
	case <-a.send:
		t.Error("unregistered client received a broadcast")
	default:
	}
	if got := hub.ViewerCount(eventID); got != 1 {
		t.Errorf("ViewerCount = %d, want 1", got)
	}
}

func TestHub_SubscriptionFollowsRoomLifecycle(t *testing.T) {
	t.Parallel()

	sub := &fakeSub{}
	hub := NewHub(nil, nil, sub)
	eventID := uuid.New()
	a := newTestClient(eventID)
	b := newTestClient(eventID)

	hub.Register(a)
	hub.Register(b)
	if sub.opened != 1 {
		t.Fatalf("opened = %d, want 1 subscription per room", sub.opened)
	}

	hub.Unregister(a)
	if sub.cancelled != 0 {
		t.Fatal("subscription cancelled while the room still has a client")
	}
	hub.Unregister(b)
	if sub.cancelled != 1 {
		t.Fatalf("cancelled = %d, want 1 after the room empties", sub.cancelled)
	}
}

// Broadcasts race against clients joining and leaving; run with -race.
func TestHub_BroadcastDuringChurn(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c := newTestClient(eventID)
				c.ID = fmt.Sprintf("c-%d-%d", n, j)
				hub.Register(c)
				hub.Unregister(c)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			hub.Broadcast(eventID, "capacity", map[string]int{"confirmed": j})
		}
	}()
	wg.Wait()
}
