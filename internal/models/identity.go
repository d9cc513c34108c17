package models

import (
	"strings"
	"time"
)

// IdentityAxis names one of the independently trackable identity dimensions
type IdentityAxis string

const (
	AxisEmail             IdentityAxis = "email"
	AxisDeviceFingerprint IdentityAxis = "device_fingerprint"
	AxisAgentString       IdentityAxis = "agent_string"
)

// IdentityKey is a single present lookup key tagged with its axis
type IdentityKey struct {
	Axis  IdentityAxis
	Value string
}

// IdentityAxes holds the optional identity values of a requester.
// An empty string means the axis is absent.
type IdentityAxes struct {
	Email             string
	DeviceFingerprint string
	AgentString       string
}

// NewIdentityAxes trims every axis and lower-cases the email
func NewIdentityAxes(email, deviceFingerprint, agentString string) IdentityAxes {
	return IdentityAxes{
		Email:             strings.ToLower(strings.TrimSpace(email)),
		DeviceFingerprint: strings.TrimSpace(deviceFingerprint),
		AgentString:       strings.TrimSpace(agentString),
	}
}

// Keys returns the present axes in a fixed order
func (a IdentityAxes) Keys() []IdentityKey {
	keys := make([]IdentityKey, 0, 3)
	if a.Email != "" {
		keys = append(keys, IdentityKey{Axis: AxisEmail, Value: a.Email})
	}
	if a.DeviceFingerprint != "" {
		keys = append(keys, IdentityKey{Axis: AxisDeviceFingerprint, Value: a.DeviceFingerprint})
	}
	if a.AgentString != "" {
		keys = append(keys, IdentityKey{Axis: AxisAgentString, Value: a.AgentString})
	}
	return keys
}

// IsEmpty reports whether no axis is present
func (a IdentityAxes) IsEmpty() bool {
	return len(a.Keys()) == 0
}

// HasDevice reports whether a device fingerprint or agent string is present
func (a IdentityAxes) HasDevice() bool {
	return a.DeviceFingerprint != "" || a.AgentString != ""
}

// DeviceOnly drops the email axis
func (a IdentityAxes) DeviceOnly() IdentityAxes {
	return IdentityAxes{DeviceFingerprint: a.DeviceFingerprint, AgentString: a.AgentString}
}

// SessionCounterKey is the key of the per-session attempt counter
func (a IdentityAxes) SessionCounterKey() string {
	return a.DeviceFingerprint + "|" + a.AgentString
}

// BlockRecord permanently blocks every identity matching one of its present axes
type BlockRecord struct {
	ID                string
	Email             *string
	DeviceFingerprint *string
	AgentString       *string
	Reason            string
	BlockedAt         time.Time
}

// Matches applies the OR-match rule against the given axes
func (b *BlockRecord) Matches(axes IdentityAxes) bool {
	for _, key := range axes.Keys() {
		var field *string
		switch key.Axis {
		case AxisEmail:
			field = b.Email
		case AxisDeviceFingerprint:
			field = b.DeviceFingerprint
		case AxisAgentString:
			field = b.AgentString
		}
		if field != nil && *field == key.Value {
			return true
		}
	}
	return false
}

// LockoutDecision is the outcome of a passcode check
type LockoutDecision struct {
	Allowed  bool
	Blocked  bool
	Attempts int
}
