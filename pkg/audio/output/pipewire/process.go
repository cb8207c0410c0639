// ABOUTME: Realtime process callback of the pipewire driver
// ABOUTME: Fills one stream buffer per call from the output layer
package pipewire

import (
	"math"
	"time"
)

// onProcess runs on the engine's realtime thread
func (b *Backend) onProcess() {
	b.loop.Lock()
	defer b.loop.Unlock()

	buf := b.stream.DequeueBuffer()
	if buf == nil {
		b.logger.Warn("Out of buffers")
		return
	}

	ao := b.ao
	planes := ao.Planes()
	if planes > len(buf.Datas) || planes > len(b.planes) || ao.SStride <= 0 {
		b.logger.Warn("Buffer does not match stream format", "planes", len(buf.Datas), "want", planes)
		return
	}

	maxbuf := uint32(math.MaxUint32)
	for i := range planes {
		d := &buf.Datas[i]
		if d.Data == nil || d.Chunk == nil {
			return
		}
		maxbuf = min(maxbuf, d.MaxSize)
	}

	// only half the buffer is requested to leave the engine headroom
	nframes := int(maxbuf) / ao.SStride / 2
	for i := range planes {
		data := buf.Datas[i].Data
		nframes = min(nframes, len(data)/ao.SStride)
	}
	for i := range planes {
		b.planes[i] = buf.Datas[i].Data[:nframes*ao.SStride]
	}

	deadline := b.deadline(nframes, planes)
	n := ao.ReadData(b.planes[:planes], nframes, deadline)

	buf.Size = 0
	for i := range planes {
		c := buf.Datas[i].Chunk
		c.Offset = 0
		c.Stride = int32(ao.SStride)
		c.Size = uint32(n * ao.SStride)
		buf.Size += uint64(c.Size)
		b.planes[i] = nil
	}

	if err := b.stream.QueueBuffer(buf); err != nil {
		b.logger.Warn("Failed to queue buffer", "error", err)
	}
}

// deadline is when the first frame of this callback reaches the speaker
func (b *Backend) deadline(nframes, planes int) time.Time {
	now := b.now()

	t, err := b.stream.Time()
	if err != nil {
		b.logger.Debug("Stream time unavailable", "error", err)
	}
	rate := int64(t.Rate.Denom)
	if rate == 0 {
		rate = int64(b.ao.SampleRate)
	}
	if rate <= 0 {
		return now
	}

	queued := int64(t.Queued) / int64(b.ao.SStride) / int64(planes)
	frames := int64(nframes) + queued + t.Delay
	return now.Add(time.Duration(frames * int64(time.Second) / rate))
}
