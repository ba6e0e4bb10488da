package events

import "testing"

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub[int]()

	var got []int
	cancel := hub.Subscribe(func(v int) { got = append(got, v) })

	hub.Publish(1)
	hub.Publish(2)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected deliveries: %v", got)
	}

	cancel()
	hub.Publish(3)
	if len(got) != 2 {
		t.Fatalf("cancelled subscriber still received values: %v", got)
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub[string]()
	cancel := hub.Subscribe(func(string) {})
	cancel()
	cancel()
	hub.Publish("fine")
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub[struct{}]()
	hub.Publish(struct{}{})
}
