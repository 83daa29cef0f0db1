package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicFrame, "", 10)
	if sub == nil {
		t.Fatal("Subscribe() returned nil")
	}
	if sub.Topic != TopicFrame {
		t.Errorf("Expected topic %s, got %s", TopicFrame, sub.Topic)
	}
	if cap(sub.Channel) != 10 {
		t.Errorf("Expected channel buffer size 10, got %d", cap(sub.Channel))
	}
	if count := ps.SubscriberCount(TopicFrame); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}

	other := ps.Subscribe(TopicFrame, "", 10)
	if other.ID == sub.ID {
		t.Errorf("Expected distinct subscriber IDs, both were %q", sub.ID)
	}
}

func TestUnsubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicStatus, "", 10)
	ps.Unsubscribe(sub)

	if count := ps.SubscriberCount(TopicStatus); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}

	select {
	case _, ok := <-sub.Channel:
		if ok {
			t.Error("Channel should be closed after unsubscribe")
		}
	default:
		t.Error("Channel should be closed and readable")
	}
}

func TestUnsubscribe_NonExistent(t *testing.T) {
	ps := New()
	ps.Subscribe(TopicFrame, "", 1)

	fakeSub := &Subscriber{
		ID:      "fake-id",
		Topic:   TopicFrame,
		Channel: make(chan interface{}, 1),
	}
	ps.Unsubscribe(fakeSub)

	if count := ps.SubscriberCount(TopicFrame); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}
}

func TestPublish_WithFilter(t *testing.T) {
	ps := New()

	subOne := ps.Subscribe(TopicFrame, "1", 10)
	subTwo := ps.Subscribe(TopicFrame, "2", 10)
	subAll := ps.Subscribe(TopicFrame, "", 10)

	ps.Publish(TopicFrame, "1", "frame for 1")

	select {
	case msg := <-subOne.Channel:
		if msg != "frame for 1" {
			t.Errorf("Expected 'frame for 1', got '%v'", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("subOne should have received the message")
	}

	select {
	case <-subTwo.Channel:
		t.Error("subTwo should not have received the message")
	default:
	}

	select {
	case msg := <-subAll.Channel:
		if msg != "frame for 1" {
			t.Errorf("Expected 'frame for 1', got '%v'", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("subAll should have received the message")
	}
}

func TestPublish_EmptyFilter(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(TopicFrame, "3", 10)

	ps.Publish(TopicFrame, "", "broadcast")

	select {
	case msg := <-sub.Channel:
		if msg != "broadcast" {
			t.Errorf("Expected 'broadcast', got '%v'", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Should have received message with empty publish filter")
	}
}

func TestPublish_ChannelFull(t *testing.T) {
	ps := New()
	sub := ps.Subscribe(TopicFrame, "", 1)

	ps.Publish(TopicFrame, "", "msg1")

	done := make(chan struct{})
	go func() {
		ps.Publish(TopicFrame, "", "msg2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked on full channel")
	}

	if msg := <-sub.Channel; msg != "msg1" {
		t.Errorf("Expected 'msg1', got '%v'", msg)
	}
}

func TestPublishAll(t *testing.T) {
	ps := New()

	subs := []*Subscriber{
		ps.Subscribe(TopicOutputs, "1", 10),
		ps.Subscribe(TopicOutputs, "2", 10),
		ps.Subscribe(TopicOutputs, "", 10),
	}

	ps.PublishAll(TopicOutputs, "broadcast")

	for i, sub := range subs {
		select {
		case msg := <-sub.Channel:
			if msg != "broadcast" {
				t.Errorf("Subscriber %d: Expected 'broadcast', got '%v'", i, msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("Subscriber %d timed out waiting for message", i)
		}
	}
}

func TestPublish_ConcurrentUnsubscribe(t *testing.T) {
	ps := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		sub := ps.Subscribe(TopicFrame, "", 1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			ps.Unsubscribe(sub)
		}()
		go func(i int) {
			defer wg.Done()
			ps.Publish(TopicFrame, "", i)
		}(i)
	}

	wg.Wait()

	if count := ps.SubscriberCount(TopicFrame); count != 0 {
		t.Errorf("Expected 0 subscribers, got %d", count)
	}
}

func TestTopicConstants(t *testing.T) {
	topics := []Topic{TopicFrame, TopicStatus, TopicOutputs}

	seen := make(map[Topic]bool)
	for _, topic := range topics {
		if seen[topic] {
			t.Errorf("Duplicate topic: %s", topic)
		}
		seen[topic] = true
	}
}
