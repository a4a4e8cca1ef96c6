package rplidar

import "errors"

// Error categories. Operations wrap these with fmt.Errorf("...: %w", ...)
// so callers can discriminate with errors.Is.
var (
	// ErrConnection means the serial transport could not be opened.
	ErrConnection = errors.New("rplidar: connection error")

	// ErrProtocol means the device response violated the wire protocol:
	// descriptor sync mismatch, unexpected response type, or a short read
	// on a fixed size payload.
	ErrProtocol = errors.New("rplidar: protocol error")

	// ErrState means an operation was issued in the wrong connection
	// state, e.g. starting a scan while one is already running.
	ErrState = errors.New("rplidar: invalid state")
)
