package broadcast

import "testing"

func TestNew(t *testing.T) {
	b := New[string](4)
	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.Len() != 0 {
		t.Errorf("Len %d, want 0", b.Len())
	}
}

func TestBroadcaster_PublishDeliversToMultipleSubscribers(t *testing.T) {
	b := New[int](4)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(7)
	if got := <-ch1; got != 7 {
		t.Errorf("ch1 got %d, want 7", got)
	}
	if got := <-ch2; got != 7 {
		t.Errorf("ch2 got %d, want 7", got)
	}
}

func TestBroadcaster_PublishDropsWhenLagging(t *testing.T) {
	b := New[int](1)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(1)
	b.Publish(2)
	if got := <-ch; got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected second value %d", v)
	default:
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := New[string](1)
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	b.Unsubscribe(ch)
}

func TestBroadcaster_Close(t *testing.T) {
	b := New[string](1)
	ch := b.Subscribe()
	b.Close()
	if _, open := <-ch; open {
		t.Error("channel should be closed after Close")
	}
	if b.Len() != 0 {
		t.Errorf("Len %d after Close, want 0", b.Len())
	}
}
