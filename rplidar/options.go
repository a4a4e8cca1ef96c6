package rplidar

import "time"

// WithPort sets the serial device path, e.g. /dev/ttyUSB0.
func WithPort(ttyPort string) func(*Lidar) {
	return func(l *Lidar) {
		l.ttyPort = ttyPort
	}
}

// WithBaudRate overrides the default 115200 baud line speed.
func WithBaudRate(baudRate int) func(*Lidar) {
	return func(l *Lidar) {
		l.baudRate = baudRate
	}
}

// WithReadTimeout sets the per-read timeout applied to all reads for the
// life of the connection.
func WithReadTimeout(timeout time.Duration) func(*Lidar) {
	return func(l *Lidar) {
		l.timeout = timeout
	}
}

// WithSerialPort injects an already open transport. Connect then skips
// opening the device and only clears stale buffers.
func WithSerialPort(port SerialPort) func(*Lidar) {
	return func(l *Lidar) {
		l.port = port
	}
}

// WithMotorSpinup overrides how long StartScan waits for the motor to
// reach a stable speed before requesting data.
func WithMotorSpinup(d time.Duration) func(*Lidar) {
	return func(l *Lidar) {
		l.motorSpinup = d
	}
}
