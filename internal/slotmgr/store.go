// Package slotmgr owns the fixed set of Slot Engines, serializes
// configuration changes, enforces the edit/running mode invariant, and
// feeds the shared SAP announcer its active-slots snapshot.
package slotmgr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aes67bridge/core/internal/slot"
)

// persistedState is the on-disk shape of the four SlotConfigs.
type persistedState struct {
	Slots [4]slot.Config `json:"slots"`
}

// loadState reads path, returning defaults for any slot the file
// doesn't cover (including when the file doesn't exist at all, e.g.
// first run).
func loadState(path string) [4]slot.Config {
	cfgs := defaultConfigs()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfgs
	}
	var st persistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return cfgs
	}
	for i, c := range st.Slots {
		if c.SlotID != 0 {
			cfgs[i] = c
		}
	}
	return cfgs
}

func defaultConfigs() [4]slot.Config {
	var cfgs [4]slot.Config
	for i := range cfgs {
		cfgs[i] = slot.DefaultConfig(slot.MinSlotID + i)
	}
	return cfgs
}

// saveState writes cfgs to path atomically: write to a temp file in the
// same directory, then rename over the destination, so a crash mid-write
// never leaves a truncated or partially-written config file.
func saveState(path string, cfgs [4]slot.Config) error {
	data, err := json.MarshalIndent(persistedState{Slots: cfgs}, "", "  ")
	if err != nil {
		return fmt.Errorf("slotmgr: marshaling state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".aes67bridge-state-*.tmp")
	if err != nil {
		return fmt.Errorf("slotmgr: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("slotmgr: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("slotmgr: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("slotmgr: renaming temp file into place: %w", err)
	}
	return nil
}
