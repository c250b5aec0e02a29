package player

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubRegisterAndStop(t *testing.T) {
	h := NewHub()
	go h.Run()

	s1 := NewSession(testTrack(), newFakeConn(), Options{Scheduler: nopScheduler{}})
	s2 := NewSession(testTrack(), newFakeConn(), Options{Scheduler: nopScheduler{}})
	h.Register(s1)
	h.Register(s2)
	waitFor(t, func() bool { return h.Count(s1.TrackID) == 2 })

	h.Unregister(s2)
	waitFor(t, func() bool { return h.Count("") == 1 })

	h.Stop()
	select {
	case <-s1.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed when hub stopped")
	}

	// Stop 之后登记的会话直接关闭
	s3 := NewSession(testTrack(), newFakeConn(), Options{Scheduler: nopScheduler{}})
	h.Register(s3)
	select {
	case <-s3.Done():
	case <-time.After(time.Second):
		t.Fatal("late session should be closed")
	}
}
