// ABOUTME: Stream property helpers shared by engines
// ABOUTME: Parses the node.latency quantum into frames at the stream rate
package engine

import (
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
)

// LatencyFrames converts a node.latency property such as "1024/48000" to
// frames at rate. It returns 0 when the property is missing or malformed.
func LatencyFrames(props pw.Properties, rate uint32) int {
	v, ok := props[pw.KeyNodeLatency]
	if !ok || rate == 0 {
		return 0
	}

	num, den, found := strings.Cut(strings.TrimSpace(v), "/")
	frames, err := strconv.Atoi(num)
	if err != nil || frames <= 0 {
		return 0
	}
	if !found {
		return frames
	}

	quantumRate, err := strconv.Atoi(den)
	if err != nil || quantumRate <= 0 {
		return 0
	}
	return int(int64(frames) * int64(rate) / int64(quantumRate))
}
