package slotmgr

import (
	"path/filepath"
	"testing"

	"github.com/aes67bridge/core/internal/slot"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "state.json"), nil)
}

func TestNewManagerCreatesFourDefaultSlots(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	cfgs := m.ListConfigs()
	for i, c := range cfgs {
		if c.SlotID != slot.MinSlotID+i {
			t.Errorf("slot %d: SlotID got %d, want %d", i, c.SlotID, slot.MinSlotID+i)
		}
	}
}

func TestGetConfigUnknownSlot(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if _, err := m.GetConfig(99); err != slot.ErrUnknownSlot {
		t.Errorf("GetConfig(99): got %v, want %v", err, slot.ErrUnknownSlot)
	}
}

func TestSetConfigRejectsInvalidAddress(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	cfg := m.ListConfigs()[0]
	cfg.MulticastIP = "10.0.0.1"
	if _, err := m.SetConfig(1, cfg); err != slot.ErrInvalidMulticastAddr {
		t.Errorf("SetConfig: got %v, want %v", err, slot.ErrInvalidMulticastAddr)
	}
}

func TestSetConfigAppliesAndPersists(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	cfg := m.ListConfigs()[0]
	cfg.NDISourceName = "Camera 1"
	cfg.AES67StreamName = "Studio A"

	got, err := m.SetConfig(1, cfg)
	if err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got.NDISourceName != "Camera 1" {
		t.Errorf("NDISourceName: got %q, want %q", got.NDISourceName, "Camera 1")
	}

	reloaded := New(m.statePath, nil)
	if reloaded.ListConfigs()[0].NDISourceName != "Camera 1" {
		t.Error("SetConfig did not persist to disk")
	}
}

func TestSetConfigLockedWhileRunning(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	m.engines[0].SetConfig(withSource(m.engines[0].Config(), "Camera 1"))
	if err := m.engines[0].Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.engines[0].Stop()

	_, err := m.SetConfig(2, m.ListConfigs()[1])
	if err != slot.ErrLocked {
		t.Errorf("SetConfig while running: got %v, want %v", err, slot.ErrLocked)
	}
}

func withSource(cfg slot.Config, name string) slot.Config {
	cfg.NDISourceName = name
	return cfg
}

func TestActiveSlotsEmptyInitially(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if ids := m.ActiveSlots(); len(ids) != 0 {
		t.Errorf("ActiveSlots: got %v, want empty", ids)
	}
}

func TestStatusNotRunningInitially(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	running, msg := m.Status()
	if running {
		t.Error("Status: got running=true before any slot started")
	}
	if msg != "" {
		t.Errorf("Status message: got %q, want empty", msg)
	}
}

func TestSlotSDPUnavailableForIdleSlot(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if _, err := m.SlotSDP(1, 0); err != slot.ErrSDPUnavailable {
		t.Errorf("SlotSDP: got %v, want %v", err, slot.ErrSDPUnavailable)
	}
}

func TestDebugSlotUnknownSlot(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if _, err := m.DebugSlot(0); err != slot.ErrUnknownSlot {
		t.Errorf("DebugSlot(0): got %v, want %v", err, slot.ErrUnknownSlot)
	}
}

func TestStopAllAnnouncedToleratesNilAnnouncer(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	m.engines[0].SetConfig(withSource(m.engines[0].Config(), "Camera 1"))
	if err := m.engines[0].Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m.StopAllAnnounced(nil)

	if st := m.engines[0].Status().State; st != slot.Idle {
		t.Errorf("slot state after StopAllAnnounced: got %v, want %v", st, slot.Idle)
	}
}

func TestWithdrawSlotIsNoopWhenNotLive(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	// Idle slot: WithdrawSlot must not panic even with a nil announcer,
	// and must not try to send anything since nothing is Live.
	m.WithdrawSlot(nil, 1)
}
