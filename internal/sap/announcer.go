package sap

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/aes67bridge/core/internal/mcast"
)

const (
	baseInterval = 30 * time.Second
	jitterSpread = 3 * time.Second

	// deleteBurstCount and deleteBurstGap control how many withdrawal
	// packets are sent when a slot stops: a single UDP datagram can be
	// lost, and there is no acknowledgment in SAP, so a short burst
	// gives receivers a good chance to see at least one.
	deleteBurstCount = 3
	deleteBurstGap   = 100 * time.Millisecond
)

// sender is the subset of *mcast.Emitter the Announcer depends on, kept
// as an interface so tests can substitute a fake without opening a real
// socket.
type sender interface {
	Send(pkt []byte)
	Close() error
}

// Announcer runs the background SAP loop independent of all slots: every
// ~30s it asks Snapshot for the currently Live slots and sends one SAP
// announcement per slot.
type Announcer struct {
	log      *slog.Logger
	emitter  sender
	sourceIP net.IP

	// Snapshot returns the SDP Params for every slot currently in the
	// Live state. It must be cheap and non-blocking: the Slot Manager
	// copies its active-slots registry under its own mutex and hands
	// back the copy.
	Snapshot func() []Params
}

// New creates an Announcer that sends from iface (nil for the kernel's
// default multicast route) and identifies itself in SAP headers as
// sourceIP.
func New(iface *net.Interface, sourceIP net.IP, snapshot func() []Params, log *slog.Logger) (*Announcer, error) {
	if log == nil {
		log = slog.Default()
	}
	e, err := mcast.New(Group, Port, iface, log.With("component", "sap-announcer"))
	if err != nil {
		return nil, err
	}
	return newAnnouncer(e, sourceIP, snapshot, log), nil
}

func newAnnouncer(e sender, sourceIP net.IP, snapshot func() []Params, log *slog.Logger) *Announcer {
	if log == nil {
		log = slog.Default()
	}
	return &Announcer{
		log:      log.With("component", "sap-announcer"),
		emitter:  e,
		sourceIP: sourceIP,
		Snapshot: snapshot,
	}
}

// Run blocks, sending an announcement cycle every 30s ±3s jitter until
// ctx is cancelled.
func (a *Announcer) Run(ctx context.Context) {
	a.log.Info("SAP announcer started")
	defer a.log.Info("SAP announcer stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(nextInterval()):
			a.announceCycle()
		}
	}
}

func (a *Announcer) announceCycle() {
	slots := a.Snapshot()
	for _, p := range slots {
		a.Announce(p)
	}
}

// Announce sends a single SAP announcement for p.
func (a *Announcer) Announce(p Params) {
	sdp := BuildSDP(p, FlavorAES67)
	a.emitter.Send(BuildPacket(sdp, a.sourceIP, false))
}

// Withdraw sends a short burst of SAP deletion packets for p, so
// receivers drop the announcement promptly instead of waiting for it to
// time out on their side. Called when a slot stops, per
// original_source/pipeline.py's send_delete_burst.
func (a *Announcer) Withdraw(p Params) {
	sdp := BuildSDP(p, FlavorAES67)
	pkt := BuildPacket(sdp, a.sourceIP, true)
	for i := 0; i < deleteBurstCount; i++ {
		a.emitter.Send(pkt)
		if i < deleteBurstCount-1 {
			time.Sleep(deleteBurstGap)
		}
	}
}

// Close releases the announcer's sending socket.
func (a *Announcer) Close() error {
	return a.emitter.Close()
}

func nextInterval() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(2*jitterSpread))) - jitterSpread
	return baseInterval + jitter
}
