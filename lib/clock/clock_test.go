package clock

import (
	"testing"
	"time"
)

func TestFakeFiresInOrder(t *testing.T) {
	c := NewFake()
	var got []int
	c.AfterFunc(2*time.Second, func() { got = append(got, 2) })
	c.AfterFunc(time.Second, func() { got = append(got, 1) })
	c.AfterFunc(5*time.Second, func() { got = append(got, 5) })

	c.Sleep(3 * time.Second)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
	if c.Pending() != 1 {
		t.Errorf("got %d pending, want 1", c.Pending())
	}
	if c.Slept() != 3*time.Second {
		t.Errorf("got %v slept, want 3s", c.Slept())
	}
}

func TestFakeStop(t *testing.T) {
	c := NewFake()
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("expected Stop to report true")
	}
	if tm.Stop() {
		t.Error("second Stop should report false")
	}
	c.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestFakeTimerScheduledFromCallback(t *testing.T) {
	c := NewFake()
	n := 0
	c.AfterFunc(time.Second, func() {
		n++
		c.AfterFunc(time.Second, func() { n++ })
	})
	c.Advance(time.Second)
	c.Advance(time.Second)
	if n != 2 {
		t.Errorf("got %d, want 2", n)
	}
}
