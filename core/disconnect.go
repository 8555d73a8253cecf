package core

// Wire-protocol status codes carried by close events.
const (
	ReasonLoggedOut           = 401
	ReasonConnectionLost      = 408
	ReasonMultideviceMismatch = 411
	ReasonConnectionClosed    = 428
	ReasonConnectionReplaced  = 440
	ReasonBadSession          = 500
	ReasonRestartRequired     = 515
)

// DisconnectCategory is the user-facing classification of a close event.
type DisconnectCategory string

const (
	CategoryConnectionLost      DisconnectCategory = "connection-lost"
	CategoryRestartRequired     DisconnectCategory = "restart-required"
	CategoryBadSession          DisconnectCategory = "bad-session"
	CategoryInvalidSession      DisconnectCategory = "invalid-session"
	CategoryMultideviceMismatch DisconnectCategory = "multi-device-mismatch"
	CategoryUnknown             DisconnectCategory = "unknown"
)

// Disconnect describes a close event mapped into a category with a
// human-readable message and recovery guidance. The raw protocol error never
// reaches the caller unmapped.
type Disconnect struct {
	Code       int
	Category   DisconnectCategory
	Message    string
	Suggestion string
}

// MapDisconnect translates a wire-protocol close code into a Disconnect.
func MapDisconnect(code int) Disconnect {
	d := Disconnect{Code: code}
	switch code {
	case ReasonConnectionLost, ReasonConnectionClosed:
		d.Category = CategoryConnectionLost
		d.Message = "connection to the messaging service was lost"
		d.Suggestion = "check network connectivity and retry"
	case ReasonRestartRequired:
		d.Category = CategoryRestartRequired
		d.Message = "the messaging service requested a restart"
		d.Suggestion = "retry the pairing request"
	case ReasonBadSession:
		d.Category = CategoryBadSession
		d.Message = "stored session material is corrupt"
		d.Suggestion = "delete the session and pair again"
	case ReasonLoggedOut, ReasonConnectionReplaced:
		d.Category = CategoryInvalidSession
		d.Message = "the session was logged out or replaced on another device"
		d.Suggestion = "pair again to create a fresh session"
	case ReasonMultideviceMismatch:
		d.Category = CategoryMultideviceMismatch
		d.Message = "the account does not have multi-device enabled"
		d.Suggestion = "enable linked devices on the phone and retry"
	default:
		d.Category = CategoryUnknown
		d.Message = "the connection closed unexpectedly"
		d.Suggestion = "retry, or use the QR flow instead"
	}
	return d
}
