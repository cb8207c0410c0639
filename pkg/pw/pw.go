// ABOUTME: Client contract of the realtime audio service
// ABOUTME: Stream, buffer and timing types that engines implement
// Package pw describes the client side of a PipeWire-style audio service.
//
// A Client is a reference-counted handle on a process-wide Engine. Streams
// are created against a ThreadLoop; once the loop runs, the engine invokes the
// stream's process event from its realtime thread, and the handler dequeues a
// Buffer, fills its data planes and queues it back.
//
//	client, err := pw.Acquire(engine)
//	loop := client.NewThreadLoop("player")
//	stream, err := client.NewStream(loop, "audio-src", props, pw.StreamEvents{Process: fill})
//	err = stream.Connect(pw.DirectionOutput, pw.IDAny, flags, params)
//	loop.Start()
package pw

import (
	"errors"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// Direction of a stream relative to the client
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionOutput {
		return "output"
	}
	return "input"
}

// IDAny lets the service pick the target node
const IDAny uint32 = 0xffffffff

// StreamFlags modify how a stream is connected
type StreamFlags uint32

const (
	FlagAutoconnect StreamFlags = 1 << iota
	FlagInactive
	FlagMapBuffers
	FlagDriver
	FlagRTProcess
	FlagNoConvert
	FlagExclusive
	FlagDontReconnect
	FlagAllocBuffers
)

// Has reports whether all bits of o are set
func (f StreamFlags) Has(o StreamFlags) bool {
	return f&o == o
}

// StreamState is the connection state of a stream
type StreamState int

const (
	StreamStateError StreamState = iota - 1
	StreamStateUnconnected
	StreamStateConnecting
	StreamStatePaused
	StreamStateStreaming
)

func (s StreamState) String() string {
	switch s {
	case StreamStateError:
		return "error"
	case StreamStateUnconnected:
		return "unconnected"
	case StreamStateConnecting:
		return "connecting"
	case StreamStatePaused:
		return "paused"
	case StreamStateStreaming:
		return "streaming"
	}
	return "unknown"
}

// Properties are key/value pairs attached to a stream
type Properties map[string]string

// Well-known property keys
const (
	KeyMediaType     = "media.type"
	KeyMediaCategory = "media.category"
	KeyMediaRole     = "media.role"
	KeyAppName       = "application.name"
	KeyNodeName      = "node.name"
	KeyNodeLatency   = "node.latency"
)

// Chunk describes the valid region of a data plane
type Chunk struct {
	Offset uint32
	Size   uint32
	Stride int32
}

// Data is one plane of a buffer. Data is nil when the plane is not mapped.
type Data struct {
	Data    []byte
	MaxSize uint32
	Chunk   *Chunk
}

// Buffer is a set of planes shared with the service
type Buffer struct {
	Datas []Data
	// Size is the total number of valid bytes over all planes
	Size uint64
}

// Fraction is a rational number, used for rates
type Fraction struct {
	Num   uint32
	Denom uint32
}

// Time is a timing snapshot of a stream
type Time struct {
	// Now is the monotonic time of the snapshot in nanoseconds
	Now   int64
	Rate  Fraction
	Ticks uint64
	// Delay is the device delay in frames
	Delay int64
	// Queued is the number of bytes queued in the stream and not yet consumed
	Queued uint64
}

// StreamEvents holds the handlers a stream invokes
type StreamEvents struct {
	// Process is called from the realtime thread when a buffer can be filled
	Process func()
	// StateChanged is called when the connection state changes
	StateChanged func(old, state StreamState, err error)
}

// Stream is a media stream connected to the service
type Stream interface {
	Connect(dir Direction, target uint32, flags StreamFlags, params []spa.Pod) error
	SetActive(active bool) error
	// DequeueBuffer returns the next buffer to fill, nil if none is available
	DequeueBuffer() *Buffer
	QueueBuffer(b *Buffer) error
	Time() (Time, error)
	Destroy()
}

var (
	// ErrNotConnected is returned by stream operations that need a connection
	ErrNotConnected = errors.New("stream not connected")
	// ErrUnknownBuffer is returned when queueing a buffer that was not dequeued
	ErrUnknownBuffer = errors.New("buffer was not dequeued from this stream")
	// ErrNoFormat is returned when no format parameter could be negotiated
	ErrNoFormat = errors.New("no usable format parameter")
	// ErrUnknownEngine is returned by LookupEngine for unregistered names
	ErrUnknownEngine = errors.New("unknown engine")
)
