package rplidar

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

//go:generate mockgen -destination=../mocks/mock_serial.go -package=mocks rplidar/rplidar SerialPort

// SerialPort is the transport the driver talks through: a duplex byte
// stream with a per-read timeout and the DTR line, which drives the scan
// motor on this hardware. go.bug.st/serial.Port satisfies it; tests use
// the generated mock in the mocks package.
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	SetDTR(level bool) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Close() error
}

// OpenSerialPort opens ttyPort at the given baud rate with the 8N1 framing
// the RPLIDAR A1 uses and applies the read timeout.
func OpenSerialPort(ttyPort string, baudRate int, timeout time.Duration) (SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(ttyPort, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %v: %v: %w", ttyPort, err, ErrConnection)
	}

	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %v: %v: %w", ttyPort, err, ErrConnection)
	}

	return port, nil
}
