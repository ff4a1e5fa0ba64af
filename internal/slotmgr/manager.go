package slotmgr

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aes67bridge/core/internal/mcast"
	"github.com/aes67bridge/core/internal/ndi"
	"github.com/aes67bridge/core/internal/sap"
	"github.com/aes67bridge/core/internal/slot"
)

// Manager owns the four Slot Engines, serializes configuration changes
// under a single mutex, and exposes the bridge's control surface:
// listing/refreshing sources, getting/setting slot configs,
// starting/stopping slots, and reading status, SDP, and debug output.
type Manager struct {
	log       *slog.Logger
	statePath string

	mu      sync.Mutex
	engines [4]*slot.Engine

	findSources func(timeout time.Duration) ([]ndi.Source, error)
	sourcesMu   sync.Mutex
	sources     []ndi.Source
}

// New creates a Manager, loading persisted slot configuration from
// statePath if it exists (defaults otherwise).
func New(statePath string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "slot-manager")

	cfgs := loadState(statePath)
	m := &Manager{
		log:       log,
		statePath: statePath,
	}
	for i, cfg := range cfgs {
		m.engines[i] = slot.NewEngine(cfg.SlotID, cfg, log)
	}
	m.findSources = func(timeout time.Duration) ([]ndi.Source, error) {
		f, err := ndi.NewFinder()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return f.ListSources(timeout)
	}
	return m
}

// engineFor returns the Engine for slotID, or ErrUnknownSlot.
func (m *Manager) engineFor(slotID int) (*slot.Engine, error) {
	if slotID < slot.MinSlotID || slotID > slot.MaxSlotID {
		return nil, slot.ErrUnknownSlot
	}
	return m.engines[slotID-slot.MinSlotID], nil
}

// isRunning reports whether any slot is outside Idle. It takes no lock
// of its own (Engine.Status() takes each Engine's), so it is safe to
// call with or without m.mu held.
func (m *Manager) isRunning() bool {
	for _, e := range m.engines {
		if e.Status().State != slot.Idle {
			return true
		}
	}
	return false
}

// ListConfigs returns all four SlotConfigs.
func (m *Manager) ListConfigs() [4]slot.Config {
	var cfgs [4]slot.Config
	for i, e := range m.engines {
		cfgs[i] = e.Config()
	}
	return cfgs
}

// GetConfig returns one slot's configuration.
func (m *Manager) GetConfig(slotID int) (slot.Config, error) {
	e, err := m.engineFor(slotID)
	if err != nil {
		return slot.Config{}, err
	}
	return e.Config(), nil
}

// SetConfig validates and applies cfg to slotID, rejecting the write
// with ErrLocked unless every slot is Idle. On success the new state is
// persisted atomically before this call returns.
func (m *Manager) SetConfig(slotID int, cfg slot.Config) (slot.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.engineFor(slotID)
	if err != nil {
		return slot.Config{}, err
	}
	if m.isRunning() {
		return slot.Config{}, slot.ErrLocked
	}
	cfg.SlotID = slotID
	if cfg.SSRC == 0 {
		cfg.SSRC = e.Config().SSRC
	}
	if err := cfg.Validate(); err != nil {
		return slot.Config{}, err
	}

	e.SetConfig(cfg)
	if err := saveState(m.statePath, m.ListConfigs()); err != nil {
		m.log.Warn("failed to persist slot configuration", "slot_id", slotID, "err", err)
		return slot.Config{}, fmt.Errorf("slotmgr: %w", err)
	}
	return cfg, nil
}

// StartAll calls Start on every slot whose NDI source is configured.
func (m *Manager) StartAll() (running bool, message string) {
	for _, e := range m.engines {
		if e.Config().NDISourceName == "" {
			continue
		}
		if err := e.Start(); err != nil {
			m.log.Warn("slot start failed", "slot_id", e.SlotID(), "err", err)
		}
	}
	return m.Status()
}

// StopAll calls Stop on every non-Idle slot.
func (m *Manager) StopAll() {
	for _, e := range m.engines {
		if e.Status().State != slot.Idle {
			e.Stop()
		}
	}
}

// ActiveSlots returns the ids of every slot currently Live.
func (m *Manager) ActiveSlots() []int {
	var ids []int
	for _, e := range m.engines {
		if e.Status().State == slot.Live {
			ids = append(ids, e.SlotID())
		}
	}
	return ids
}

// SlotSDP returns SDP text for slotID/flavor, or ErrSDPUnavailable if
// that slot isn't Live.
func (m *Manager) SlotSDP(slotID int, flavor sap.Flavor) (string, error) {
	e, err := m.engineFor(slotID)
	if err != nil {
		return "", err
	}
	return e.SDP(flavor)
}

// DebugSlot returns slotID's full runtime counters.
func (m *Manager) DebugSlot(slotID int) (slot.Status, error) {
	e, err := m.engineFor(slotID)
	if err != nil {
		return slot.Status{}, err
	}
	return e.Status(), nil
}

// Status summarizes the bridge's overall health: running iff any slot
// is Live, and the first non-empty Failed message otherwise.
func (m *Manager) Status() (running bool, message string) {
	for _, e := range m.engines {
		st := e.Status()
		if st.State == slot.Live {
			running = true
		}
	}
	if running {
		return true, ""
	}
	for _, e := range m.engines {
		if st := e.Status(); st.State == slot.Failed && st.Message != "" {
			return false, st.Message
		}
	}
	return false, ""
}

// ListSources returns the last-known discoverable NDI sources without
// triggering a new discovery pass.
func (m *Manager) ListSources() []ndi.Source {
	m.sourcesMu.Lock()
	defer m.sourcesMu.Unlock()
	out := make([]ndi.Source, len(m.sources))
	copy(out, m.sources)
	return out
}

// RefreshSources re-runs NDI discovery and replaces the cached source
// list.
func (m *Manager) RefreshSources(timeout time.Duration) ([]ndi.Source, error) {
	sources, err := m.findSources(timeout)
	if err != nil {
		return nil, err
	}
	m.sourcesMu.Lock()
	m.sources = sources
	m.sourcesMu.Unlock()
	return sources, nil
}

// AnnouncerSnapshot returns sap.Params for every Live slot, copied out
// under m.mu so the SAP Announcer's periodic cycle never blocks slot
// operations.
func (m *Manager) AnnouncerSnapshot() []sap.Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	var params []sap.Params
	for _, e := range m.engines {
		if e.Status().State == slot.Live {
			params = append(params, e.SDPParams())
		}
	}
	return params
}

// WithdrawSlot sends a SAP withdrawal burst for slotID via announcer
// before the caller stops that slot's engine, per
// original_source/pipeline.py's shutdown sequence.
func (m *Manager) WithdrawSlot(announcer *sap.Announcer, slotID int) {
	e, err := m.engineFor(slotID)
	if err != nil || announcer == nil {
		return
	}
	if e.Status().State == slot.Live {
		announcer.Withdraw(e.SDPParams())
	}
}

// StopAllAnnounced withdraws every Live slot's SAP announcement and then
// calls StopAll, so operator-initiated stops through the control
// surface never leave a stale announcement for receivers to time out on
// their own.
func (m *Manager) StopAllAnnounced(announcer *sap.Announcer) {
	for _, id := range m.ActiveSlots() {
		m.WithdrawSlot(announcer, id)
	}
	m.StopAll()
}

// ResolveAnnouncerSource returns the IPv4 address of iface, used as the
// SAP header's originating source address.
func ResolveAnnouncerSource(iface *net.Interface) net.IP {
	if ip := mcast.IPv4Addr(iface); ip != nil {
		return ip
	}
	return net.IPv4zero
}
