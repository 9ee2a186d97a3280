package clock

import (
	"testing"
	"time"
)

func TestSystemClock_UsesLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	if loc := NewSystem(paris).Now().Location(); loc != paris {
		t.Fatalf("expected Europe/Paris, got %s", loc)
	}
	if loc := NewSystem(nil).Now().Location(); loc != time.UTC {
		t.Fatalf("nil location should default to UTC, got %s", loc)
	}
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 6, 9, 23, 30, 0, 0, time.UTC)
	c := NewFixed(at)
	if !c.Now().Equal(at) || !c.Now().Equal(c.Now()) {
		t.Fatal("fixed clock must always return the same instant")
	}
}
