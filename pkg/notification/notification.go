// Package notification defines the OEM extension notifications exchanged
// between a UWB adapter and the bridge.
//
// Payload contents are opaque to the bridge; only their shape matters:
//   - SessionStatus, DeviceStatus: fire-and-forget, no answer travels back
//   - SessionConfig: request-response, answered with a status code
//   - RangingReport: request-response, answered with a (possibly rewritten) report
package notification

import (
	"fmt"
	"strings"
)

// Kind identifies the notification type.
type Kind string

const (
	// KindSessionStatus reports a ranging session state change.
	KindSessionStatus Kind = "session_status"
	// KindDeviceStatus reports a UWB device state change.
	KindDeviceStatus Kind = "device_status"
	// KindSessionConfig asks the vendor to accept a session configuration.
	KindSessionConfig Kind = "session_config"
	// KindRangingReport hands a ranging report to the vendor for rewriting.
	KindRangingReport Kind = "ranging_report"
)

// Mode is the dispatch mode of a notification kind.
type Mode string

const (
	// ModeFireAndForget notifications have no answer.
	ModeFireAndForget Mode = "fire_and_forget"
	// ModeRequestResponse notifications wait for the listener's answer.
	ModeRequestResponse Mode = "request_response"
)

// StatusOK is the default session configuration status code, used when no
// vendor answer is available.
const StatusOK int32 = 0

// Kinds lists all known notification kinds.
func Kinds() []Kind {
	return []Kind{KindSessionStatus, KindDeviceStatus, KindSessionConfig, KindRangingReport}
}

// Mode returns the dispatch mode for the kind.
func (k Kind) Mode() Mode {
	switch k {
	case KindSessionConfig, KindRangingReport:
		return ModeRequestResponse
	default:
		return ModeFireAndForget
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSessionStatus, KindDeviceStatus, KindSessionConfig, KindRangingReport:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a kind name. Both snake_case and the short camel names
// ("SessionStatus") are accepted.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch normalized {
	case "session_status", "sessionstatus":
		return KindSessionStatus, nil
	case "device_status", "devicestatus":
		return KindDeviceStatus, nil
	case "session_config", "sessionconfig":
		return KindSessionConfig, nil
	case "ranging_report", "rangingreport":
		return KindRangingReport, nil
	}
	return "", fmt.Errorf("unknown notification kind %q", s)
}
