package protocol

// Eject reason codes, delivered with the terminating EJECT frame so clients
// can distinguish credential failures from rule violations.
const (
	// Login problems (bad credentials).
	ReasonCredentials uint16 = 122
	// Client broke a game rule (e.g. control intent out of range).
	ReasonRuleViolation uint16 = 152
	// A service the request depends on has not been discovered yet.
	ReasonServiceNotReady uint16 = 999
)

var knownReasons = map[uint16]struct{}{
	ReasonCredentials:     {},
	ReasonRuleViolation:   {},
	ReasonServiceNotReady: {},
}

func IsKnownReason(code uint16) bool {
	_, ok := knownReasons[code]
	return ok
}
