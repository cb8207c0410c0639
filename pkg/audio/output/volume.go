// ABOUTME: Software volume and mute for int32 samples
// ABOUTME: Scales in place and clamps to the 24-bit range
package output

import "github.com/Resonate-Protocol/resonate-ao/pkg/audio"

// applyVolume applies volume and mute to samples in place with clipping protection
func applyVolume(samples []int32, volume int, muted bool) {
	multiplier := getVolumeMultiplier(volume, muted)
	if multiplier == 1.0 {
		return
	}

	for i, sample := range samples {
		scaled := int64(float64(sample) * multiplier)

		// Clamp to 24-bit range to prevent overflow
		if scaled > audio.Max24Bit {
			scaled = audio.Max24Bit
		} else if scaled < audio.Min24Bit {
			scaled = audio.Min24Bit
		}

		samples[i] = int32(scaled)
	}
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}

func clampVolume(volume int) int {
	return min(max(volume, 0), 100)
}
