// Package rplidar provides a go driver for the Slamtec RPLIDAR A1 over a
// serial line: command framing, response parsing and assembly of the
// continuous measurement stream into complete rotations.
// https://bucket-download.slamtec.com/d1e428e7efbdcd65a8ea111061794fb8d4ccd3a0/LR001_SLAMTEC_rplidar_protocol_v2.1_en.pdf
package rplidar

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

const (
	defaultBaudRate    = 115200
	defaultTimeout     = 2 * time.Second
	defaultMotorSpinup = 500 * time.Millisecond
	defaultMotorPWM    = 660

	// stopSettle is how long the device needs after a STOP command
	// before its output stream actually ceases.
	stopSettle = 100 * time.Millisecond
)

// Lidar is one exclusive session with an RPLIDAR A1. It owns the serial
// transport and the motor line and is not safe for concurrent use; the
// caller serializes access.
type Lidar struct {
	port  SerialPort
	state ConnectionState

	ttyPort     string
	baudRate    int
	timeout     time.Duration
	motorSpinup time.Duration
	motorOn     bool
}

// NewLidar returns a Lidar, executing functional options, if any.
func NewLidar(options ...func(*Lidar)) *Lidar {
	l := &Lidar{
		baudRate:    defaultBaudRate,
		timeout:     defaultTimeout,
		motorSpinup: defaultMotorSpinup,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// State returns the current connection state.
func (l *Lidar) State() ConnectionState {
	return l.state
}

// Connect opens the serial transport and clears any stale buffered bytes.
// Calling it while already connected is a no-op.
func (l *Lidar) Connect() error {
	if l.state != Disconnected {
		glog.Warningf("connect called while %v; ignoring", l.state)
		return nil
	}

	if l.port == nil {
		if l.ttyPort == "" {
			return fmt.Errorf("no serial port configured: %w", ErrConnection)
		}
		port, err := OpenSerialPort(l.ttyPort, l.baudRate, l.timeout)
		if err != nil {
			return err
		}
		l.port = port
	} else if err := l.port.SetReadTimeout(l.timeout); err != nil {
		return fmt.Errorf("setting read timeout: %v: %w", err, ErrConnection)
	}

	// Drop whatever a previous session left behind.
	if err := l.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("clearing input buffer: %v: %w", err, ErrConnection)
	}
	if err := l.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("clearing output buffer: %v: %w", err, ErrConnection)
	}

	l.state = Connected
	glog.V(1).Infof("connected to %v", l.ttyPort)
	return nil
}

// Disconnect stops any running scan and the motor, swallowing their
// errors, then closes the transport. The ordering matters: closing the
// port first would leave the motor spinning with no way to command it off.
func (l *Lidar) Disconnect() error {
	if l.state == Disconnected {
		glog.V(1).Info("disconnect called while disconnected; ignoring")
		return nil
	}

	if l.state == Scanning {
		if err := l.StopScan(); err != nil {
			glog.Warningf("stop scan during disconnect: %v", err)
		}
	}
	if err := l.StopMotor(); err != nil {
		glog.Warningf("stop motor during disconnect: %v", err)
	}

	err := l.port.Close()
	l.port = nil
	l.state = Disconnected
	glog.V(1).Info("disconnected")

	if err != nil {
		return fmt.Errorf("closing serial port: %v: %w", err, ErrConnection)
	}
	return nil
}

// sendCommand writes an encoded request frame to the device.
func (l *Lidar) sendCommand(cmd byte, payload []byte) error {
	if l.state == Disconnected {
		return fmt.Errorf("not connected: %w", ErrState)
	}

	frame := encodeCommand(cmd, payload)
	if _, err := l.port.Write(frame); err != nil {
		return fmt.Errorf("writing command %#02x: %v", cmd, err)
	}
	glog.V(2).Infof("sent command % x", frame)
	return nil
}

// DeviceInfo requests the model, firmware, hardware and serial number.
func (l *Lidar) DeviceInfo() (*DeviceInfo, error) {
	if err := l.sendCommand(cmdGetInfo, nil); err != nil {
		return nil, err
	}

	d, err := readDescriptor(l.port)
	if err != nil {
		return nil, err
	}
	if d.typ != typeInfo {
		return nil, fmt.Errorf("invalid type code. Expected %#02x got %#02x. Mode: %#x: %w",
			typeInfo, d.typ, d.mode, ErrProtocol)
	}

	data := make([]byte, infoPayloadSize)
	if err := readFull(l.port, data); err != nil {
		return nil, fmt.Errorf("reading device info: %w", err)
	}
	return decodeDeviceInfo(data), nil
}

// HealthStatus requests the device health snapshot.
func (l *Lidar) HealthStatus() (*HealthStatus, error) {
	if err := l.sendCommand(cmdGetHealth, nil); err != nil {
		return nil, err
	}

	d, err := readDescriptor(l.port)
	if err != nil {
		return nil, err
	}
	if d.typ != typeHealth {
		return nil, fmt.Errorf("invalid type code. Expected %#02x got %#02x. Mode: %#x: %w",
			typeHealth, d.typ, d.mode, ErrProtocol)
	}

	data := make([]byte, healthPayloadSize)
	if err := readFull(l.port, data); err != nil {
		return nil, fmt.Errorf("reading health status: %w", err)
	}
	return decodeHealth(data), nil
}

// StartMotor spins up the scan motor by raising the DTR line. The pwm
// argument exists for interface symmetry with PWM controlled variants;
// the A1 motor is binary on/off, so the value is ignored.
func (l *Lidar) StartMotor(pwm uint16) error {
	if l.state == Disconnected {
		return fmt.Errorf("not connected: %w", ErrState)
	}
	if err := l.port.SetDTR(true); err != nil {
		return fmt.Errorf("setting DTR: %v", err)
	}
	l.motorOn = true
	glog.V(1).Info("motor started")
	return nil
}

// StopMotor stops the scan motor by dropping the DTR line.
func (l *Lidar) StopMotor() error {
	if l.state == Disconnected {
		return fmt.Errorf("not connected: %w", ErrState)
	}
	if err := l.port.SetDTR(false); err != nil {
		return fmt.Errorf("setting DTR: %v", err)
	}
	l.motorOn = false
	glog.V(1).Info("motor stopped")
	return nil
}

// StartScan puts the device into continuous measurement mode: motor up,
// spinup wait, SCAN command, and validation of the scan descriptor.
func (l *Lidar) StartScan() error {
	if l.state == Disconnected {
		return fmt.Errorf("not connected: %w", ErrState)
	}
	if l.state == Scanning {
		return fmt.Errorf("scan already in progress: %w", ErrState)
	}

	if err := l.StartMotor(defaultMotorPWM); err != nil {
		return err
	}
	time.Sleep(l.motorSpinup)

	if err := l.sendCommand(cmdScan, nil); err != nil {
		return err
	}

	d, err := readDescriptor(l.port)
	if err != nil {
		return err
	}
	if d.typ != typeScan {
		return fmt.Errorf("invalid type code. Expected %#02x got %#02x. Mode: %#x: %w",
			typeScan, d.typ, d.mode, ErrProtocol)
	}
	if d.mode != modeContinuous {
		return fmt.Errorf("expected continuous response mode, got %#x: %w", d.mode, ErrProtocol)
	}

	l.state = Scanning
	glog.V(1).Info("scan started")
	return nil
}

// StopScan sends the STOP command, waits for the stream to cease and
// discards buffered input. Safe to call when no scan is running.
func (l *Lidar) StopScan() error {
	if l.state == Disconnected {
		return fmt.Errorf("not connected: %w", ErrState)
	}

	if err := l.sendCommand(cmdStop, nil); err != nil {
		return err
	}
	time.Sleep(stopSettle)

	if err := l.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("clearing input buffer: %v", err)
	}

	l.state = Connected
	glog.V(1).Info("scan stopped")
	return nil
}

// Reset soft reboots the device. The device drops back to idle and needs
// a moment before it accepts further commands.
func (l *Lidar) Reset() error {
	return l.sendCommand(cmdReset, nil)
}
