package inproc

import (
	"errors"
	"testing"

	"github.com/dimasergei/agentiq/internal/domain"
)

func TestPublishFanOut(t *testing.T) {
	bus := New(4)
	a := bus.Subscribe("a")
	b := bus.Subscribe("b")

	if err := bus.Publish(domain.SimulationEvent{Kind: domain.EventCatalogReset}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for name, ch := range map[string]<-chan domain.SimulationEvent{"a": a, "b": b} {
		select {
		case evt := <-ch:
			if evt.Kind != domain.EventCatalogReset {
				t.Fatalf("subscriber %s got kind=%s", name, evt.Kind)
			}
		default:
			t.Fatalf("subscriber %s received nothing", name)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := New(1)
	bus.Subscribe("slow")

	if err := bus.Publish(domain.SimulationEvent{Kind: domain.EventInsightAdded}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := bus.Publish(domain.SimulationEvent{Kind: domain.EventInsightAdded}); !errors.Is(err, ErrSubscriberQueueFull) {
		t.Fatalf("err=%v want=%v", err, ErrSubscriberQueueFull)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(1)
	ch := bus.Subscribe("x")
	bus.Unsubscribe("x")

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
	if err := bus.Publish(domain.SimulationEvent{Kind: domain.EventCatalogReset}); err != nil {
		t.Fatalf("publish to no subscribers: %v", err)
	}
}
