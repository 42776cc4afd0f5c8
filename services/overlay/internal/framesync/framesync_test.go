package framesync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"mdp-go/drivers/mdp4"
	"mdp-go/services/overlay/internal/completion"
	"mdp-go/services/overlay/internal/irq"
)

func setup() (*Coordinator, *irq.Mediator, *int32) {
	m := irq.New(mdp4.NewRegFile())
	var perf int32
	return New(m, func() { atomic.AddInt32(&perf, 1) }), m, &perf
}

func TestArmEnablesAndWaitDisables(t *testing.T) {
	s, m, perf := setup()
	c := completion.New()

	tk := s.Arm(c, mdp4.IntrOverlay1Done)
	if m.Mask() != mdp4.IntrOverlay1Done || !c.Waiting() {
		t.Fatalf("armed state: mask=%#x waiting=%v", m.Mask(), c.Waiting())
	}
	go c.Complete()
	if out := s.Wait(context.Background(), tk, Policy{Kind: Bounded, Bound: time.Second}); out != Signalled {
		t.Fatalf("outcome=%v", out)
	}
	if m.Mask() != 0 || c.Waiting() {
		t.Fatalf("post-wait state: mask=%#x waiting=%v", m.Mask(), c.Waiting())
	}
	if atomic.LoadInt32(perf) != 1 {
		t.Fatal("perf hook not called")
	}
}

func TestBoundedWaitTimesOut(t *testing.T) {
	s, m, perf := setup()
	tk := s.Arm(completion.New(), mdp4.IntrOverlay1Done)

	start := time.Now()
	out := s.Wait(context.Background(), tk, Policy{Kind: Bounded, Bound: 20 * time.Millisecond})
	if out != TimedOut {
		t.Fatalf("outcome=%v want timed_out", out)
	}
	if el := time.Since(start); el > 500*time.Millisecond {
		t.Fatalf("bounded wait took %v", el)
	}
	if m.Mask() != 0 || atomic.LoadInt32(perf) != 1 {
		t.Fatal("timeout path must still disable and run perf hook")
	}
	if s.Stats().TimedOut != 1 {
		t.Fatalf("stats=%+v", s.Stats())
	}
}

func TestCancellableWait(t *testing.T) {
	s, m, _ := setup()
	tk := s.Arm(completion.New(), mdp4.IntrPrimaryVsync)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	if out := s.Wait(ctx, tk, Policy{Kind: Cancellable}); out != Cancelled {
		t.Fatalf("outcome=%v want cancelled", out)
	}
	if m.Mask() != 0 {
		t.Fatal("cancel must disable the source")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	s, m, _ := setup()
	c := completion.New()
	a := s.Arm(c, mdp4.IntrPrimaryVsync)
	b := s.Arm(completion.New(), mdp4.IntrPrimaryVsync)
	s.Release(a)
	s.Release(a)
	if m.Mask() != mdp4.IntrPrimaryVsync {
		t.Fatal("double release dropped the other ticket's reference")
	}
	s.Release(b)
	if m.Mask() != 0 {
		t.Fatalf("mask=%#x", m.Mask())
	}
}

func TestSignalBeforeArmIsDropped(t *testing.T) {
	s, _, _ := setup()
	c := completion.New()
	c.Complete()
	tk := s.Arm(c, mdp4.IntrOverlay1Done)
	if out := s.Wait(context.Background(), tk, Policy{Kind: Bounded, Bound: 10 * time.Millisecond}); out != TimedOut {
		t.Fatalf("pre-arm signal observed: %v", out)
	}
}
