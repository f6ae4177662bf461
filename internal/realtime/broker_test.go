package realtime

import (
	"fmt"
	"testing"
)

func TestPublishReachesTopicSubscribersOnly(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("chat.thread.a")
	other := b.Subscribe("chat.thread.b")

	b.Publish(Event{Topic: "chat.thread.a", Kind: "message.created", Payload: "hi"})

	ev := <-a.C
	if ev.Kind != "message.created" || ev.Payload != "hi" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	select {
	case ev := <-other.C:
		t.Fatalf("wrong topic received %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("chat.thread.a")

	b.Unsubscribe(sub)
	if _, open := <-sub.C; open {
		t.Fatal("channel still open after unsubscribe")
	}
	if n := b.SubscriberCount("chat.thread.a"); n != 0 {
		t.Fatalf("subscriber count = %d, want 0", n)
	}

	// Idempotent.
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)

	// Publishing to a topic with no subscribers must not panic.
	b.Publish(Event{Topic: "chat.thread.a", Kind: "message.created"})
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("chat.thread.a")

	// Overfill without draining; the excess is dropped, never blocked on.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Event{Topic: "chat.thread.a", Kind: "message.created", Payload: fmt.Sprintf("m%d", i)})
	}

	var received int
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Fatalf("received %d events, want %d buffered", received, subscriberBuffer)
	}
}

func TestCloseTearsDownEverything(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("chat.thread.a")

	b.Close()
	if _, open := <-sub.C; open {
		t.Fatal("channel still open after close")
	}

	// Late subscribers get an already-closed channel.
	late := b.Subscribe("chat.thread.a")
	if _, open := <-late.C; open {
		t.Fatal("post-close subscription not closed")
	}

	// Publish and a second Close are no-ops.
	b.Publish(Event{Topic: "chat.thread.a"})
	b.Close()
}
