package client

import (
	"errors"
	"fmt"
)

// ErrUnknownDevice is returned when a device name is not present in the
// current catalog.
var ErrUnknownDevice = errors.New("unknown device")

// HTTPError reports a non-2xx response from the gateway.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gateway returned HTTP %d for %s", e.Status, e.URL)
}

// DeviceOfflineError reports that a device left the catalog. When it is
// raised mid-poll it carries the execution id so the job can be
// retrieved once the device returns.
type DeviceOfflineError struct {
	Device      string
	ExecutionID string
}

func (e *DeviceOfflineError) Error() string {
	if e.ExecutionID == "" {
		return fmt.Sprintf("device %s is offline", e.Device)
	}
	return fmt.Sprintf("device %s went offline; the id of your submitted job is %s", e.Device, e.ExecutionID)
}

// DeviceTooSmallError reports that a job needs more qubits than the
// device provides.
type DeviceTooSmallError struct {
	Device       string
	MaxQubits    int
	NeededQubits int
}

func (e *DeviceTooSmallError) Error() string {
	return fmt.Sprintf("device %s is too small: %d qubits available, %d needed",
		e.Device, e.MaxQubits, e.NeededQubits)
}

// TimeoutError reports that polling exhausted its attempts without the
// job reaching a terminal status.
type TimeoutError struct {
	ExecutionID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for results; the id of your submitted job is %s", e.ExecutionID)
}

// ExecutionError reports an unexpected status string from the gateway.
type ExecutionError struct {
	Status string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("gateway reported status %q", e.Status)
}

// ParseError reports a gateway response missing an expected field.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gateway response missing field %q", e.Field)
}

// InterruptedError reports that polling was aborted by an interrupt. It
// carries the execution id so the job can be retrieved later.
type InterruptedError struct {
	ExecutionID string
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted; the id of your submitted job is %s", e.ExecutionID)
}
