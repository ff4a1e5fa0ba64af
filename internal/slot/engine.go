package slot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aes67bridge/core/internal/audiopipe"
	"github.com/aes67bridge/core/internal/mcast"
	"github.com/aes67bridge/core/internal/ndi"
	"github.com/aes67bridge/core/internal/rtp"
	"github.com/aes67bridge/core/internal/sap"
)

// These are vars, not consts, so tests can shrink them instead of
// waiting out the real startup/shutdown/read-timeout windows.
var (
	startWatchdog    = 5 * time.Second
	stopGrace        = 2 * time.Second
	frameReadTimeout = 1 * time.Second
)

const maxConsecutiveSendErrs = 100

// packetSender is the subset of *mcast.Emitter the Engine depends on,
// kept as an interface so tests can substitute a fake instead of
// opening real sockets.
type packetSender interface {
	Send(pkt []byte)
	Stats() (sent, errs uint64, lastErr error)
	Close() error
}

// Engine is the per-slot state machine that composes the NDI receiver,
// format gate, repacker, L24/L16 packetizers and multicast emitters.
// One Engine exists per slot id for the life of the process; Start/Stop
// cycle it between Idle and Live.
type Engine struct {
	slotID int
	log    *slog.Logger

	connect     func(sourceName string) (ndi.Receiver, error)
	newEmitter  func(group string, port int, iface *net.Interface, log *slog.Logger) (packetSender, error)
	selectIface func() (*net.Interface, error)

	mu       sync.Mutex
	cfg      Config
	status   Status
	cancel   context.CancelFunc
	loopDone chan struct{}

	// Live only while running; force-closed by Stop() if the grace
	// period elapses before the ingestion loop exits on its own.
	receiver   ndi.Receiver
	emitterAES packetSender
	emitterMon packetSender
}

// NewEngine creates an Engine for slotID with cfg as its initial
// configuration.
func NewEngine(slotID int, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		slotID:  slotID,
		log:     log.With("component", "slot-engine", "slot_id", slotID),
		cfg:     cfg,
		connect: ndi.Connect,
		newEmitter: func(group string, port int, iface *net.Interface, log *slog.Logger) (packetSender, error) {
			return mcast.New(group, port, iface, log)
		},
		selectIface: mcast.SelectInterface,
	}
}

// SlotID returns the slot id this Engine serves.
func (e *Engine) SlotID() int { return e.slotID }

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the configuration. The caller (the Slot Manager)
// is responsible for enforcing the locked/edit-mode invariant before
// calling this.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// Status returns a snapshot of the current runtime state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SDPParams returns the sap.Params describing this slot's flows as
// currently configured, for use by the SAP Announcer and the on-demand
// SDP control operation.
func (e *Engine) SDPParams() sap.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	sourceIP := "0.0.0.0"
	if ip := mcast.IPv4Addr(ifaceOrNil(e.status.MulticastIface)); ip != nil {
		sourceIP = ip.String()
	}
	return sap.Params{
		SSRC:             e.cfg.SSRC,
		StreamName:       e.cfg.EffectiveStreamName(),
		SourceIP:         sourceIP,
		MulticastIP:      e.cfg.MulticastIP,
		MulticastPort:    e.cfg.MulticastPort,
		PTPDomain:        ptpDomain(),
		PTPGrandmasterID: ptpGMID(),
	}
}

// SDP returns the on-demand SDP text for flavor, or ErrSDPUnavailable if
// the slot isn't Live.
func (e *Engine) SDP(flavor sap.Flavor) (string, error) {
	e.mu.Lock()
	live := e.status.State == Live
	e.mu.Unlock()
	if !live {
		return "", ErrSDPUnavailable
	}
	return sap.BuildSDP(e.SDPParams(), flavor), nil
}

// Start begins the slot's ingestion pipeline. It blocks until the slot
// reaches Live, reaches Failed (start watchdog or a synchronous startup
// error), or was already running.
func (e *Engine) Start() error {
	e.mu.Lock()
	switch e.status.State {
	case Live, Starting:
		e.mu.Unlock()
		return nil
	case Stopping:
		e.mu.Unlock()
		return fmt.Errorf("slot %d: stop in progress", e.slotID)
	}
	if e.cfg.NDISourceName == "" {
		e.mu.Unlock()
		return fmt.Errorf("slot %d: no NDI source configured", e.slotID)
	}

	cfg := e.cfg
	e.status = Status{State: Starting}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	done := make(chan struct{})
	e.loopDone = done
	e.mu.Unlock()

	liveCh := make(chan struct{})
	go e.run(ctx, cfg, liveCh, done)

	select {
	case <-liveCh:
		return nil
	case <-done:
		return nil
	case <-time.After(startWatchdog):
		e.mu.Lock()
		if e.status.State == Starting {
			e.status.State = Failed
			e.status.Message = msgReceiverNotConnected
		}
		e.mu.Unlock()
		cancel()
		return nil
	}
}

// Stop ends the slot's ingestion pipeline, waiting up to a grace period
// for the ingestion goroutine to exit cleanly before forcibly closing
// its sockets and receiver. Idempotent and safe from any state.
func (e *Engine) Stop() {
	e.mu.Lock()
	switch e.status.State {
	case Idle:
		e.mu.Unlock()
		return
	case Failed:
		e.status = Status{State: Idle}
		e.mu.Unlock()
		return
	}
	e.status.State = Stopping
	cancel := e.cancel
	done := e.loopDone
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopGrace):
			e.forceAbort()
			<-done
		}
	}

	e.mu.Lock()
	e.status = Status{State: Idle}
	e.mu.Unlock()
}

func (e *Engine) forceAbort() {
	e.mu.Lock()
	recv, aes, mon := e.receiver, e.emitterAES, e.emitterMon
	e.mu.Unlock()
	if recv != nil {
		recv.Close()
	}
	if aes != nil {
		aes.Close()
	}
	if mon != nil {
		mon.Close()
	}
}

// run is the ingestion loop: connect, open sockets, then repeatedly
// read a frame, gate its format, repack it into fixed chunks, and
// packetize+send each chunk over both flows. It owns liveCh (closed
// exactly once, on the first successful send) and done (closed on
// every exit path).
func (e *Engine) run(ctx context.Context, cfg Config, liveCh, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("ingestion loop panicked", "panic", r)
			e.setFailed("internal error", "")
		}
	}()

	recv, err := e.connect(cfg.NDISourceName)
	if err != nil {
		e.setFailed(msgSourceNotFound+": "+err.Error(), "")
		return
	}
	defer recv.Close()

	iface, err := e.selectIface()
	if err != nil {
		e.setFailed(msgInterfaceNotFound+": "+err.Error(), "")
		return
	}

	emitterAES, err := e.newEmitter(cfg.MulticastIP, cfg.MulticastPort, iface, e.log)
	if err != nil {
		e.setFailed(msgSocketBindFailed+": "+err.Error(), iface.Name)
		return
	}
	defer emitterAES.Close()

	emitterMon, err := e.newEmitter(cfg.MulticastIP, cfg.MonitorPort(), iface, e.log)
	if err != nil {
		e.setFailed(msgSocketBindFailed+": "+err.Error(), iface.Name)
		return
	}
	defer emitterMon.Close()

	e.mu.Lock()
	e.receiver, e.emitterAES, e.emitterMon = recv, emitterAES, emitterMon
	e.status.MulticastIface = iface.Name
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.receiver, e.emitterAES, e.emitterMon = nil, nil, nil
		e.mu.Unlock()
	}()

	var gate audiopipe.Gate
	repacker := audiopipe.NewRepacker()
	pktAES := rtp.New(rtp.KindL24, cfg.SSRC)
	pktMon := rtp.New(rtp.KindL16, cfg.SSRC)

	liveSignaled := false
	consecutiveErrs := 0
	var prevErrsAES, prevErrsMon uint64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := recv.CaptureAudio(frameReadTimeout)
		if err != nil {
			if errors.Is(err, ndi.ErrTimeout) {
				// No frame arrived within the read window: once Live,
				// that's a real gap in the audio being bridged.
				if liveSignaled {
					e.incUnderruns()
				}
				continue
			}
			e.setFailed(msgSourceDisconnected, iface.Name)
			return
		}
		e.incFramesReceived()

		if gateErr := gate.Check(frame.SampleRate, frame.Channels); gateErr != nil {
			e.mu.Lock()
			e.status.ParamMismatchCount++
			e.mu.Unlock()
			e.setFailed(gateErr.Error(), iface.Name)
			return
		}

		chunks := repacker.Push(audiopipe.Frame{
			Samples: frame.Samples,
			Stride:  frame.Stride,
			Layout:  audiopipe.Layout(frame.Layout),
			Data:    frame.Data,
		})

		for i := range chunks {
			chunk := &chunks[i]
			emitterAES.Send(pktAES.Packetize(chunk))
			emitterMon.Send(pktMon.Packetize(chunk))

			sentAES, errsAES, lastErrAES := emitterAES.Stats()
			sentMon, errsMon, lastErrMon := emitterMon.Stats()

			lastErr := lastErrMon
			if lastErrAES != nil {
				lastErr = lastErrAES
			}

			// consecutiveErrs tracks whether *this* chunk's sends failed,
			// not whether any send has ever failed: Stats() reports a
			// sticky lastErr and a monotonic error count, so a failure is
			// detected from the error count advancing since the previous
			// chunk, never from lastErr's mere presence.
			failedThisChunk := errsAES > prevErrsAES || errsMon > prevErrsMon
			prevErrsAES, prevErrsMon = errsAES, errsMon
			if failedThisChunk {
				consecutiveErrs++
			} else {
				consecutiveErrs = 0
			}

			justWentLive := false
			e.mu.Lock()
			e.status.PacketsSent = sentAES + sentMon
			e.status.BytesSent += uint64(pktAES.PacketSize() + pktMon.PacketSize())
			e.status.LastSendUnixNano = time.Now().UnixNano()
			if lastErr != nil {
				e.status.LastSendError = lastErr.Error()
			}
			if !liveSignaled && sentAES > 0 {
				liveSignaled = true
				justWentLive = true
				e.status.State = Live
				e.status.Message = ""
			}
			e.mu.Unlock()

			if justWentLive {
				close(liveCh)
			}

			if consecutiveErrs > maxConsecutiveSendErrs {
				e.setFailed(msgExcessiveSendErrors, iface.Name)
				return
			}
		}
	}
}

func (e *Engine) setFailed(message, iface string) {
	e.mu.Lock()
	e.status.State = Failed
	e.status.Message = message
	if iface != "" {
		e.status.MulticastIface = iface
	}
	e.mu.Unlock()
}

func (e *Engine) incFramesReceived() {
	e.mu.Lock()
	e.status.FramesReceived++
	e.mu.Unlock()
}

func (e *Engine) incUnderruns() {
	e.mu.Lock()
	e.status.Underruns++
	e.mu.Unlock()
}

func ifaceOrNil(name string) *net.Interface {
	if name == "" {
		return nil
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return ifi
}
