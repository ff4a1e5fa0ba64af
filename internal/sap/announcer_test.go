package sap

import (
	"net"
	"testing"
)

type fakeSender struct {
	sent   [][]byte
	closed bool
}

func (f *fakeSender) Send(pkt []byte) { f.sent = append(f.sent, pkt) }
func (f *fakeSender) Close() error    { f.closed = true; return nil }

func TestAnnouncerAnnounceSendsOnePacket(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	a := newAnnouncer(fs, net.ParseIP("10.0.0.1"), nil, nil)
	a.Announce(baseParams())

	if len(fs.sent) != 1 {
		t.Fatalf("got %d packets, want 1", len(fs.sent))
	}
	if fs.sent[0][0] != flagVersion1 {
		t.Errorf("announce packet flags: got %#02x, want announce", fs.sent[0][0])
	}
}

func TestAnnouncerWithdrawSendsBurstOfDeletes(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	a := newAnnouncer(fs, net.ParseIP("10.0.0.1"), nil, nil)
	a.Withdraw(baseParams())

	if len(fs.sent) != deleteBurstCount {
		t.Fatalf("got %d packets, want %d", len(fs.sent), deleteBurstCount)
	}
	for i, pkt := range fs.sent {
		if pkt[0] != flagVersion1|flagDelete {
			t.Errorf("packet %d flags: got %#02x, want delete", i, pkt[0])
		}
	}
}

func TestAnnouncerCloseClosesEmitter(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	a := newAnnouncer(fs, net.ParseIP("10.0.0.1"), nil, nil)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fs.closed {
		t.Error("Close did not close the underlying emitter")
	}
}

func TestNextIntervalWithinJitterBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		d := nextInterval()
		if d < baseInterval-jitterSpread || d > baseInterval+jitterSpread {
			t.Fatalf("nextInterval() = %v, want within [%v, %v]", d, baseInterval-jitterSpread, baseInterval+jitterSpread)
		}
	}
}

func TestAnnounceCycleUsesSnapshot(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	calls := 0
	snapshot := func() []Params {
		calls++
		return []Params{baseParams(), baseParams()}
	}
	a := newAnnouncer(fs, net.ParseIP("10.0.0.1"), snapshot, nil)
	a.announceCycle()

	if calls != 1 {
		t.Errorf("snapshot calls: got %d, want 1", calls)
	}
	if len(fs.sent) != 2 {
		t.Errorf("packets sent: got %d, want 2", len(fs.sent))
	}
}
