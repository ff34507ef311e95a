package store

// packageName is used for debug and error messages
const packageName = "store"

// Debug levels for all packages (-v, -vv).
const (
	DebugOff  uint8 = 0
	DebugLow  uint8 = 1
	DebugHigh uint8 = 2
)
