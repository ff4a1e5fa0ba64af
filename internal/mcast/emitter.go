package mcast

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/net/ipv4"
)

// ttl is the multicast TTL set on every sending socket.
const ttl = 32

// Emitter owns one UDP sending socket for one flow (an AES67 flow, its
// monitor counterpart, or the SAP announcement socket). It binds an
// unspecified local address, sets the multicast TTL, disables loopback,
// and pins the outbound interface, then sends packets immediately on
// request: pacing comes from the caller, not from the Emitter.
type Emitter struct {
	log  *slog.Logger
	dst  *net.UDPAddr
	pc   *ipv4.PacketConn
	conn *net.UDPConn

	errCount atomic.Uint64
	sent     atomic.Uint64
	mu       sync.Mutex
	lastErr  error
}

// New creates an Emitter sending to group:port over iface. If iface is
// nil, the kernel's default multicast route is used instead of pinning
// an interface.
func New(group string, port int, iface *net.Interface, log *slog.Logger) (*Emitter, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "mcast-emitter", "group", group, "port", port)

	ip := net.ParseIP(group)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("mcast: %q is not an IPv4 address", group)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("mcast: opening send socket: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mcast: SetMulticastTTL: %w", err)
	}
	if err := pc.SetMulticastLoopback(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mcast: SetMulticastLoopback: %w", err)
	}
	if iface != nil {
		if err := pc.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mcast: SetMulticastInterface(%s): %w", iface.Name, err)
		}
	}

	e := &Emitter{
		log:  log,
		dst:  &net.UDPAddr{IP: ip, Port: port},
		pc:   pc,
		conn: conn,
	}
	log.Info("multicast sender ready", "iface", ifaceName(iface))
	return e, nil
}

// Send writes pkt to the destination group:port. Failures are counted
// and logged but never returned as fatal: dropped packets are never
// retransmitted, matching RTP/SAP's own no-retransmission semantics.
func (e *Emitter) Send(pkt []byte) {
	_, err := e.conn.WriteToUDP(pkt, e.dst)
	if err != nil {
		e.errCount.Add(1)
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		if isTransient(err) {
			e.log.Debug("transient multicast send error", "err", err)
		} else {
			e.log.Warn("multicast send error", "err", err)
		}
		return
	}
	e.sent.Add(1)
}

// Stats returns the number of packets successfully sent, the number of
// send errors, and the most recent error (nil if there has been none).
// Exposed for SlotStatus's packets_sent/last_send_error fields.
func (e *Emitter) Stats() (sent, errs uint64, lastErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sent.Load(), e.errCount.Load(), e.lastErr
}

// Close releases the underlying socket.
func (e *Emitter) Close() error {
	return e.conn.Close()
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH)
}

func ifaceName(ifi *net.Interface) string {
	if ifi == nil {
		return "(default)"
	}
	return ifi.Name
}
