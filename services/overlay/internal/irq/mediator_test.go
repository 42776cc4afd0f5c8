package irq

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mdp-go/drivers/mdp4"
)

// fakeRegs emulates write-1-to-clear status on top of a RegFile.
type fakeRegs struct {
	*mdp4.RegFile
}

func (f fakeRegs) Write32(off, v uint32) {
	f.RegFile.Write32(off, v)
	if off == mdp4.RegIntrClear {
		f.Update(mdp4.RegIntrStatus, func(s uint32) uint32 { return s &^ v })
	}
}

func (f fakeRegs) raise(src mdp4.Intr) {
	f.Update(mdp4.RegIntrStatus, func(s uint32) uint32 { return s | uint32(src) })
}

func newFake() fakeRegs { return fakeRegs{mdp4.NewRegFile()} }

func TestEnableDisableRefcount(t *testing.T) {
	regs := newFake()
	m := New(regs)

	m.Enable(mdp4.IntrPrimaryVsync)
	m.Enable(mdp4.IntrPrimaryVsync)
	m.Enable(mdp4.IntrOverlay1Done)
	if got := regs.Read32(mdp4.RegIntrEnable); got != uint32(mdp4.IntrPrimaryVsync|mdp4.IntrOverlay1Done) {
		t.Fatalf("mask=%#x", got)
	}
	m.Disable(mdp4.IntrPrimaryVsync)
	if m.Mask()&mdp4.IntrPrimaryVsync == 0 {
		t.Fatal("vsync masked while a reference remains")
	}
	m.Disable(mdp4.IntrPrimaryVsync)
	m.Disable(mdp4.IntrPrimaryVsync) // extra drop is a no-op
	if got := regs.Read32(mdp4.RegIntrEnable); got != uint32(mdp4.IntrOverlay1Done) {
		t.Fatalf("mask=%#x want overlay1 only", got)
	}
}

func TestArmClearsStaleStatus(t *testing.T) {
	regs := newFake()
	m := New(regs)
	regs.raise(mdp4.IntrOverlay1Done)

	prepared := false
	m.Arm(mdp4.IntrOverlay1Done, func() { prepared = true })
	if !prepared {
		t.Fatal("prepare not run")
	}
	if regs.Read32(mdp4.RegIntrStatus) != 0 {
		t.Fatal("stale status not cleared")
	}
	if m.Mask() != mdp4.IntrOverlay1Done {
		t.Fatalf("mask=%#x", m.Mask())
	}
}

func TestHandleDispatchesEnabledOnly(t *testing.T) {
	regs := newFake()
	m := New(regs)
	var got []mdp4.Intr
	m.SetHandler(mdp4.IntrOverlay0Done, func() { got = append(got, mdp4.IntrOverlay0Done) })
	m.SetHandler(mdp4.IntrPrimaryVsync, func() { got = append(got, mdp4.IntrPrimaryVsync) })
	m.Enable(mdp4.IntrPrimaryVsync)

	regs.raise(mdp4.IntrOverlay0Done | mdp4.IntrPrimaryVsync)
	m.Handle()

	if len(got) != 1 || got[0] != mdp4.IntrPrimaryVsync {
		t.Fatalf("dispatched %v", got)
	}
	if regs.Read32(mdp4.RegIntrStatus) != 0 {
		t.Fatal("status not cleared")
	}

	m.Handle() // nothing pending
	handled, spurious := m.Stats()
	if handled != 1 || spurious != 1 {
		t.Fatalf("handled=%d spurious=%d", handled, spurious)
	}
}

func TestHandlerMayDisable(t *testing.T) {
	regs := newFake()
	m := New(regs)
	m.SetHandler(mdp4.IntrDMAEDone, func() { m.Disable(mdp4.IntrDMAEDone) })
	m.Enable(mdp4.IntrDMAEDone)
	regs.raise(mdp4.IntrDMAEDone)

	done := make(chan struct{})
	go func() { m.Handle(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler calling Disable deadlocked")
	}
	if m.Mask() != 0 {
		t.Fatalf("mask=%#x", m.Mask())
	}
}

func TestDuplicateHandlerPanics(t *testing.T) {
	m := New(newFake())
	m.SetHandler(mdp4.IntrExternalVsync, func() {})
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate handler")
		}
	}()
	m.SetHandler(mdp4.IntrExternalVsync, func() {})
}

func TestStartServicesLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	regs := newFake()
	m := New(regs)

	var wg sync.WaitGroup
	wg.Add(1)
	m.SetHandler(mdp4.IntrExternalVsync, wg.Done)
	m.Enable(mdp4.IntrExternalVsync)

	line := make(chan struct{}, 1)
	m.Start(ctx, line)
	regs.raise(mdp4.IntrExternalVsync)
	line <- struct{}{}
	wg.Wait()

	cancel()
	select {
	case <-m.Stopped():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRearmDropsLatchedInterrupt(t *testing.T) {
	regs := newFake()
	m := New(regs)
	var calls atomic.Int32
	m.SetHandler(mdp4.IntrOverlay1Done, func() { calls.Add(1) })

	// Frame N armed and its done interrupt raised.
	m.Arm(mdp4.IntrOverlay1Done, nil)
	regs.raise(mdp4.IntrOverlay1Done)

	// Stall Handle between latching the status and dispatching it.
	m.hmu.Lock()
	done := make(chan struct{})
	go func() { m.Handle(); close(done) }()
	deadline := time.Now().Add(time.Second)
	for regs.Read32(mdp4.RegIntrStatus) != 0 {
		if time.Now().After(deadline) {
			m.hmu.Unlock()
			t.Fatal("status never latched")
		}
		time.Sleep(time.Millisecond)
	}

	// Frame N's wait gave up; frame N+1 arms the same source.
	m.Disable(mdp4.IntrOverlay1Done)
	m.Arm(mdp4.IntrOverlay1Done, nil)
	m.hmu.Unlock()
	<-done

	if calls.Load() != 0 {
		t.Fatal("interrupt latched for frame N was dispatched into frame N+1")
	}
	if _, spurious := m.Stats(); spurious != 1 {
		t.Fatalf("spurious=%d", spurious)
	}

	// Frame N+1's own interrupt still gets through.
	regs.raise(mdp4.IntrOverlay1Done)
	m.Handle()
	if calls.Load() != 1 {
		t.Fatalf("calls=%d", calls.Load())
	}
}
