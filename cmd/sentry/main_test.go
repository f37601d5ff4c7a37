package main

import (
	"testing"

	"github.com/GriffinCanCode/scan-sentry/internal/resilience"
)

type titles []string

func (t *titles) Notify(title, _ string) error {
	*t = append(*t, title)
	return nil
}

func TestEngineAlerts(t *testing.T) {
	var got titles
	alert := engineAlerts(&got)

	alert(resilience.Closed, resilience.Open)
	alert(resilience.Open, resilience.HalfOpen)
	alert(resilience.HalfOpen, resilience.Open)
	alert(resilience.Open, resilience.HalfOpen)
	alert(resilience.HalfOpen, resilience.Closed)

	want := []string{"OCR unavailable", "OCR recovered"}
	if len(got) != len(want) {
		t.Fatalf("notices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notice %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngineAlertsFromBreaker(t *testing.T) {
	var got titles
	b := resilience.New(resilience.Config{Threshold: 2}).WithHook(engineAlerts(&got))

	b.Failure()
	if len(got) != 0 {
		t.Fatalf("notices after one failure = %v, want none", got)
	}
	b.Failure()
	if len(got) != 1 || got[0] != "OCR unavailable" {
		t.Errorf("notices after threshold = %v", got)
	}
}
