package slot

import "errors"

// Configuration errors, rejected synchronously at the control boundary.
var (
	ErrLocked               = errors.New("locked")
	ErrInvalidMulticastAddr = errors.New("invalid multicast address")
	ErrPortOutOfRange       = errors.New("port out of range")
	ErrUnknownSlot          = errors.New("unknown slot")
	ErrSDPUnavailable       = errors.New("unavailable")
)

// Startup/runtime error messages, surfaced through SlotStatus.Message
// rather than returned as Go errors, since they describe a state
// transition rather than a failed call.
const (
	msgSourceNotFound       = "source not found"
	msgReceiverNotConnected = "receiver did not connect"
	msgSocketBindFailed     = "socket bind failed"
	msgInterfaceNotFound    = "interface not found"
	msgSourceDisconnected   = "source disconnected"
	msgExcessiveSendErrors  = "excessive send errors"
)
