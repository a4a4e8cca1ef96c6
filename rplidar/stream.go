package rplidar

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/golang/glog"
)

// maxFrameRetries bounds consecutive torn measurement frame reads: the
// stream gives up on the maxFrameRetries'th failure in a row. A
// persistently failing transport surfaces an error instead of spinning
// forever.
const maxFrameRetries = 5

// PointSource yields successive measurement points. io.EOF marks the end
// of a bounded sequence.
type PointSource interface {
	Next() (Point, error)
}

// PointIterator is a lazy, forward-only stream of decoded measurement
// points pulled from a scanning lidar. It is not restartable; each call
// to Points begins a fresh one.
type PointIterator struct {
	lidar *Lidar
	max   int
	count int
}

// Points returns an iterator over individual measurements. maxPoints
// bounds the sequence; 0 means unbounded. If no scan is running the first
// Next starts one.
func (l *Lidar) Points(maxPoints int) *PointIterator {
	return &PointIterator{lidar: l, max: maxPoints}
}

// Next reads and decodes one 5 byte measurement frame. A torn frame is
// skipped and re-read up to maxFrameRetries times; anything else aborts
// the stream.
func (it *PointIterator) Next() (Point, error) {
	if it.max > 0 && it.count >= it.max {
		return Point{}, io.EOF
	}

	l := it.lidar
	if l.state != Scanning {
		if err := l.StartScan(); err != nil {
			return Point{}, err
		}
	}

	var frame [frameSize]byte
	for attempt := 1; ; attempt++ {
		err := readFull(l.port, frame[:])
		if err == nil {
			break
		}
		if !errors.Is(err, ErrProtocol) || attempt == maxFrameRetries {
			return Point{}, fmt.Errorf("reading measurement frame: %w", err)
		}
		glog.Warningf("incomplete measurement frame, retrying: %v", err)
	}

	it.count++
	p := decodePoint(frame[:])
	glog.V(3).Infof("point angle=%.2f dist=%.1f quality=%d start=%v",
		p.Angle, p.Distance, p.Quality, p.NewRotation)
	return p, nil
}

// RotationIterator groups a point stream into complete rotations. The
// rotation-start flag closes out the accumulated sweep, which is emitted
// sorted by angle with zero-distance points dropped.
type RotationIterator struct {
	src     PointSource
	max     int
	emitted int
	current Rotation
}

// NewRotationIterator wraps src in a rotation accumulator. maxRotations
// bounds the sequence; 0 means it runs until src ends.
func NewRotationIterator(src PointSource, maxRotations int) *RotationIterator {
	return &RotationIterator{src: src, max: maxRotations}
}

// Rotations returns an iterator over complete 360 degree sweeps.
func (l *Lidar) Rotations(maxRotations int) *RotationIterator {
	return NewRotationIterator(l.Points(0), maxRotations)
}

// Next pulls points until a rotation completes. A rotation-start point
// with zero distance still closes the previous rotation but is not kept
// as the seed of the next one. A partial rotation in flight when the
// source ends is discarded.
func (it *RotationIterator) Next() (Rotation, error) {
	if it.max > 0 && it.emitted >= it.max {
		return nil, io.EOF
	}

	for {
		p, err := it.src.Next()
		if err != nil {
			return nil, err
		}

		var done Rotation
		if p.NewRotation && len(it.current) > 0 {
			done = it.current
			it.current = nil
			sort.Slice(done, func(i, j int) bool { return done[i].Angle < done[j].Angle })
		}

		if p.Distance > 0 {
			it.current = append(it.current, p)
		}

		if done != nil {
			it.emitted++
			return done, nil
		}
	}
}

// EachRotation starts a scan, invokes fn for every completed rotation and
// guarantees the scan and motor are stopped before returning, however the
// iteration ends.
func (l *Lidar) EachRotation(maxRotations int, fn func(Rotation) error) error {
	if err := l.StartScan(); err != nil {
		return err
	}
	defer func() {
		if err := l.StopScan(); err != nil {
			glog.Warningf("stopping scan: %v", err)
		}
		if err := l.StopMotor(); err != nil {
			glog.Warningf("stopping motor: %v", err)
		}
	}()

	it := l.Rotations(maxRotations)
	for {
		rotation, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rotation); err != nil {
			return err
		}
	}
}

// SingleRotation collects one complete rotation, stopping the scan and
// motor afterwards.
func (l *Lidar) SingleRotation() (Rotation, error) {
	var rotation Rotation
	if err := l.EachRotation(1, func(r Rotation) error {
		rotation = r
		return nil
	}); err != nil {
		return nil, err
	}
	return rotation, nil
}
