package events

import (
	"fmt"
	"testing"
)

func TestLogRingBound(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Add(Entry{Kind: KindLog, Message: fmt.Sprint(i)})
	}

	got := l.Recent(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "2" || got[2].Message != "4" {
		t.Errorf("entries = %v, want 2..4", got)
	}
	if got[0].Time.IsZero() {
		t.Error("Add should stamp the time")
	}
	if r := l.Recent(2); len(r) != 2 || r[0].Message != "3" {
		t.Errorf("Recent(2) = %v", r)
	}
}

func TestSubscribeFanOut(t *testing.T) {
	l := NewLog(10)
	a, cancelA := l.Subscribe(4)
	b, cancelB := l.Subscribe(4)
	defer cancelB()

	l.Notice("Started", "Scanning started.")

	for _, ch := range []<-chan Entry{a, b} {
		e := <-ch
		if e.Kind != KindNotice || e.Title != "Started" {
			t.Errorf("got %+v", e)
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("cancelled subscription should be closed")
	}
	l.Add(Entry{Message: "after cancel"})
	if e := <-b; e.Message != "after cancel" {
		t.Errorf("remaining subscriber got %+v", e)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	l := NewLog(10)
	_, cancel := l.Subscribe(1)
	defer cancel()

	l.Add(Entry{Message: "1"})
	l.Add(Entry{Message: "2"})
	if l.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", l.Dropped())
	}
}
