package rplidar

import (
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slicePoints replays a fixed point sequence and then reports io.EOF.
type slicePoints struct {
	points []Point
	next   int
}

func (s *slicePoints) Next() (Point, error) {
	if s.next >= len(s.points) {
		return Point{}, io.EOF
	}
	p := s.points[s.next]
	s.next++
	return p, nil
}

func TestRotationOrdering(t *testing.T) {
	src := &slicePoints{points: []Point{
		{Angle: 180.5, Distance: 900, NewRotation: true},
		{Angle: 10.0, Distance: 1500},
		{Angle: 350.25, Distance: 700},
		{Angle: 90.0, Distance: 0}, // no return, dropped
		{Angle: 45.5, Distance: 1200},
		{Angle: 181.0, Distance: 910, NewRotation: true}, // closes the sweep
	}}

	it := NewRotationIterator(src, 0)
	rotation, err := it.Next()
	require.NoError(t, err)

	require.Len(t, rotation, 4)
	assert.True(t, sort.SliceIsSorted(rotation, func(i, j int) bool {
		return rotation[i].Angle < rotation[j].Angle
	}))
	for _, p := range rotation {
		assert.Greater(t, p.Distance, 0.0)
	}
	assert.Equal(t, []float64{10.0, 45.5, 180.5, 350.25},
		[]float64{rotation[0].Angle, rotation[1].Angle, rotation[2].Angle, rotation[3].Angle})
}

func TestRotationBoundaryZeroDistanceStart(t *testing.T) {
	src := &slicePoints{points: []Point{
		{Angle: 10, Distance: 100, NewRotation: true},
		{Angle: 5, Distance: 200},
		// Zero distance rotation start: closes the sweep but must not
		// seed the next one.
		{Angle: 0, Distance: 0, NewRotation: true},
		{Angle: 20, Distance: 300},
		{Angle: 1, Distance: 50, NewRotation: true},
	}}

	it := NewRotationIterator(src, 0)

	first, err := it.Next()
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 5.0, first[0].Angle)
	assert.Equal(t, 10.0, first[1].Angle)

	second, err := it.Next()
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 20.0, second[0].Angle)
}

func TestRotationStartOnEmptyAccumulator(t *testing.T) {
	// A rotation start with nothing accumulated emits nothing.
	src := &slicePoints{points: []Point{
		{Angle: 0, Distance: 0, NewRotation: true},
		{Angle: 1, Distance: 0, NewRotation: true},
		{Angle: 2, Distance: 400, NewRotation: true},
		{Angle: 3, Distance: 500},
		{Angle: 4, Distance: 600, NewRotation: true},
	}}

	it := NewRotationIterator(src, 0)
	rotation, err := it.Next()
	require.NoError(t, err)
	require.Len(t, rotation, 2)
	assert.Equal(t, 2.0, rotation[0].Angle)
}

func TestRotationBoundedCount(t *testing.T) {
	var points []Point
	for i := 0; i < 5; i++ {
		points = append(points,
			Point{Angle: 0, Distance: 100, NewRotation: true},
			Point{Angle: 90, Distance: 100},
			Point{Angle: 180, Distance: 100},
		)
	}

	it := NewRotationIterator(&slicePoints{points: points}, 2)

	for i := 0; i < 2; i++ {
		rotation, err := it.Next()
		require.NoError(t, err)
		assert.Len(t, rotation, 3)
	}

	_, err := it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRotationSourceEnds(t *testing.T) {
	// A partial sweep in flight when the source ends is discarded.
	src := &slicePoints{points: []Point{
		{Angle: 10, Distance: 100, NewRotation: true},
		{Angle: 20, Distance: 100},
	}}

	it := NewRotationIterator(src, 0)
	_, err := it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestPointIteratorBounded(t *testing.T) {
	port := newReplayPort(
		frameBytes(10, 90.0, 1000, true),
		frameBytes(10, 91.0, 1000, false),
		frameBytes(10, 92.0, 1000, false),
	)
	l := NewLidar(WithSerialPort(port))
	l.state = Scanning

	it := l.Points(2)
	for i := 0; i < 2; i++ {
		p, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, 10, p.Quality)
	}

	_, err := it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestPointIteratorRetryExhaustion(t *testing.T) {
	// A transport that keeps timing out mid frame must surface a
	// protocol error on the maxFrameRetries'th consecutive failure
	// instead of spinning forever.
	port := newReplayPort()
	l := NewLidar(WithSerialPort(port))
	l.state = Scanning

	_, err := l.Points(0).Next()
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, maxFrameRetries, port.reads)
}

func TestPointIteratorSkipsTornFrame(t *testing.T) {
	port := newReplayPort(
		[]byte{0x29, 0x01}, // torn frame
		nil,                // then a timeout
		frameBytes(10, 90.0, 1200, true),
	)
	l := NewLidar(WithSerialPort(port))
	l.state = Scanning

	p, err := l.Points(0).Next()
	require.NoError(t, err)
	assert.Equal(t, 90.0, p.Angle)
	assert.Equal(t, 1200.0, p.Distance)
}

// frameBytes builds a wire measurement frame from readable values.
func frameBytes(quality int, angle float64, distanceMM float64, newRotation bool) []byte {
	b0 := byte(quality) << 2
	if newRotation {
		b0 |= 0x01
	} else {
		b0 |= 0x02
	}
	angleRaw := uint16(angle * 64)
	distRaw := uint16(distanceMM * 4)
	return []byte{
		b0,
		byte(angleRaw<<1) | 0x01,
		byte(angleRaw >> 7),
		byte(distRaw),
		byte(distRaw >> 8),
	}
}

// replayPort is a SerialPort that hands out one queued chunk per Read. A
// nil chunk, or an empty queue, simulates a read timeout: zero bytes with
// no error, as go.bug.st/serial reports it.
type replayPort struct {
	chunks [][]byte
	reads  int
}

func newReplayPort(chunks ...[]byte) *replayPort {
	return &replayPort{chunks: chunks}
}

func (p *replayPort) Read(buf []byte) (int, error) {
	p.reads++
	if len(p.chunks) == 0 {
		return 0, nil
	}
	chunk := p.chunks[0]
	if chunk == nil {
		p.chunks = p.chunks[1:]
		return 0, nil
	}
	n := copy(buf, chunk)
	if n == len(chunk) {
		p.chunks = p.chunks[1:]
	} else {
		p.chunks[0] = chunk[n:]
	}
	return n, nil
}

func (p *replayPort) Write(b []byte) (int, error)          { return len(b), nil }
func (p *replayPort) SetDTR(bool) error                    { return nil }
func (p *replayPort) SetReadTimeout(t time.Duration) error { return nil }
func (p *replayPort) ResetInputBuffer() error              { return nil }
func (p *replayPort) ResetOutputBuffer() error             { return nil }
func (p *replayPort) Close() error                         { return nil }
