package rplidar

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RPLIDAR A1 wire protocol. All multi-byte fields are little endian.
const (
	// syncByte prefixes every request; syncByte2 follows it in every
	// response descriptor.
	syncByte  = 0xA5
	syncByte2 = 0x5A

	// Command codes.
	cmdStop          = 0x25
	cmdReset         = 0x40
	cmdScan          = 0x20
	cmdForceScan     = 0x21
	cmdGetInfo       = 0x50
	cmdGetHealth     = 0x52
	cmdGetSamplerate = 0x59
	cmdExpressScan   = 0x82
	cmdSetPWM        = 0xF0

	// Response type tags.
	typeInfo   = 0x04
	typeHealth = 0x06
	typeScan   = 0x81

	// Send modes declared in the descriptor length field.
	modeSingle     = 0
	modeContinuous = 1

	descriptorSize    = 7
	infoPayloadSize   = 20
	healthPayloadSize = 3
	frameSize         = 5
)

// encodeCommand builds a request frame. A command without payload is the
// two byte sync+command sequence. With a payload, a length byte and the
// payload follow, terminated by the running XOR of all preceding bytes.
// The payload length must fit in one byte; that is the caller's contract.
func encodeCommand(cmd byte, payload []byte) []byte {
	frame := []byte{syncByte, cmd}
	if len(payload) == 0 {
		return frame
	}

	frame = append(frame, byte(len(payload)))
	frame = append(frame, payload...)

	checksum := byte(0)
	for _, b := range frame {
		checksum ^= b
	}
	return append(frame, checksum)
}

// readFull fills buf from r. A zero byte read means the transport timed
// out with the buffer still short; that and end of stream are reported as
// a protocol error carrying the byte counts.
func readFull(r io.Reader, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if total == len(buf) {
			return nil
		}
		if err == io.EOF || (err == nil && n == 0) {
			return fmt.Errorf("short read: expected %v bytes got %v: %w", len(buf), total, ErrProtocol)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readDescriptor consumes exactly 7 bytes and validates the response
// header. The type tag is returned uninterpreted; matching it against the
// expected response type is the caller's job.
func readDescriptor(r io.Reader) (descriptor, error) {
	var buf [descriptorSize]byte
	if err := readFull(r, buf[:]); err != nil {
		return descriptor{}, fmt.Errorf("reading descriptor: %w", err)
	}

	if buf[0] != syncByte || buf[1] != syncByte2 {
		return descriptor{}, fmt.Errorf("invalid descriptor sync. Expected %#02x %#02x got %#02x %#02x: %w",
			syncByte, syncByte2, buf[0], buf[1], ErrProtocol)
	}

	sizeAndMode := binary.LittleEndian.Uint32(buf[2:6])
	return descriptor{
		size: sizeAndMode & 0x3FFFFFFF,
		mode: byte(sizeAndMode >> 30),
		typ:  buf[6],
	}, nil
}

// decodeDeviceInfo parses the 20 byte device info payload.
func decodeDeviceInfo(data []byte) *DeviceInfo {
	info := &DeviceInfo{
		Model:         data[0],
		FirmwareMinor: data[1],
		FirmwareMajor: data[2],
		Hardware:      data[3],
	}
	copy(info.Serial[:], data[4:20])
	return info
}

// decodeHealth parses the 3 byte health payload. Status codes outside the
// defined set are kept as-is and render as "Unknown".
func decodeHealth(data []byte) *HealthStatus {
	return &HealthStatus{
		Status:    HealthState(data[0]),
		ErrorCode: binary.LittleEndian.Uint16(data[1:3]),
	}
}

// decodePoint converts one 5 byte measurement frame into a Point.
//
// Byte layout:
//
//	[0] quality(6) | newRotation complement(1) | newRotation(1)
//	[1] angle low 7 bits | check(1)
//	[2] angle high 8 bits
//	[3] distance low 8 bits
//	[4] distance high 8 bits
//
// The angle is reported in 1/64 degree units across 15 bits, the distance
// in 1/4 mm units across 16 bits. The two check bits (byte0 bit1, byte1
// bit0) are defined by the wire format but not validated here; firmware
// variants disagree on them.
func decodePoint(frame []byte) Point {
	angleRaw := uint16(frame[1])>>1 | uint16(frame[2])<<7
	distRaw := uint16(frame[3]) | uint16(frame[4])<<8

	return Point{
		Quality:     int(frame[0] >> 2),
		NewRotation: frame[0]&0x01 != 0,
		Angle:       float64(angleRaw) / 64.0,
		Distance:    float64(distRaw) / 4.0,
	}
}
