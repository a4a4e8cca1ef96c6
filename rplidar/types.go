package rplidar

import (
	"fmt"
)

// ConnectionState tracks the lifecycle of a lidar session. It is owned by
// the Lidar and moves Disconnected -> Connected -> Scanning and back.
type ConnectionState int

const (
	// Disconnected means no serial session is open.
	Disconnected ConnectionState = iota

	// Connected means the serial session is open and one-shot commands
	// (info, health) may be issued.
	Connected

	// Scanning means the device is continuously streaming measurement
	// frames.
	Scanning
)

// String returns a human readable state name.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case Scanning:
		return "Scanning"
	}
	return fmt.Sprintf("ConnectionState(%d)", int(s))
}

// Point is a single decoded lidar measurement.
type Point struct {
	Angle       float64 // Angle in degrees, [0, 360).
	Distance    float64 // Distance in millimeters. 0 means no return.
	Quality     int     // Signal quality, 0 (weakest) to 63 (strongest).
	NewRotation bool    // First sample of a new revolution.
}

// Rotation is one complete 360 degree sweep of valid measurements,
// sorted ascending by angle. Points with zero distance are dropped.
type Rotation []Point

// DeviceInfo contains the device model, firmware, hardware and serial number.
type DeviceInfo struct {
	Model         byte     // Model number.
	FirmwareMinor byte     // Firmware minor version.
	FirmwareMajor byte     // Firmware major version.
	Hardware      byte     // Hardware revision.
	Serial        [16]byte // Serial number.
}

// Firmware returns the firmware version as "major.minor".
func (d *DeviceInfo) Firmware() string {
	return fmt.Sprintf("%d.%d", d.FirmwareMajor, d.FirmwareMinor)
}

// SerialNumber returns the serial number as an uppercase hex string.
func (d *DeviceInfo) SerialNumber() string {
	return fmt.Sprintf("%X", d.Serial[:])
}

// String returns a human readable summary of the device.
func (d *DeviceInfo) String() string {
	return fmt.Sprintf("Model: %d Hardware Version: %d Firmware Version: %s Serial Number: %s",
		d.Model, d.Hardware, d.Firmware(), d.SerialNumber())
}

// HealthState is the device reported health status code.
type HealthState byte

const (
	HealthGood    HealthState = 0
	HealthWarning HealthState = 1
	HealthError   HealthState = 2
)

// String returns the status label. Codes the protocol does not define map
// to "Unknown" rather than failing.
func (s HealthState) String() string {
	switch s {
	case HealthGood:
		return "Good"
	case HealthWarning:
		return "Warning"
	case HealthError:
		return "Error"
	}
	return "Unknown"
}

// HealthStatus is a snapshot of the device health response.
type HealthStatus struct {
	Status    HealthState
	ErrorCode uint16 // Device specific error code, 0 when healthy.
}

// String returns a human readable health summary.
func (h *HealthStatus) String() string {
	return fmt.Sprintf("Status: %v Error Code: %#04x", h.Status, h.ErrorCode)
}

// descriptor is the parsed 7 byte response header that precedes every
// device response. It only lives for the duration of one response.
type descriptor struct {
	size uint32 // Declared payload size, low 30 bits of the length field.
	mode byte   // Send mode: 0 single response, 1 continuous stream.
	typ  byte   // Response type tag, see typeInfo/typeHealth/typeScan.
}
