package mcast

import (
	"os"
	"testing"
)

func TestSelectInterfaceRejectsUnknownName(t *testing.T) {
	t.Setenv(ifaceEnv, "no-such-interface-xyz")
	_, err := SelectInterface()
	if err == nil {
		t.Fatal("expected an error for a nonexistent interface name")
	}
}

func TestSelectInterfaceIgnoresEmptyEnv(t *testing.T) {
	os.Unsetenv(ifaceEnv)
	// Either a usable interface is found or a descriptive error is
	// returned; either way it must not panic and must not silently
	// pick the loopback interface.
	ifi, err := SelectInterface()
	if err == nil && ifi.Name == "lo" {
		t.Errorf("SelectInterface picked loopback")
	}
}
