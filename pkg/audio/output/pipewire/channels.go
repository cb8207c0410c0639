// ABOUTME: Channel position table for the pipewire driver
// ABOUTME: Maps player speaker ids to SPA channel positions
package pipewire

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// ErrUnmappedSpeaker is returned for speaker ids without an SPA position
var ErrUnmappedSpeaker = errors.New("speaker has no pipewire channel position")

var channelPositions = [chmap.SpeakerCount]spa.AudioChannel{
	chmap.SpeakerFL:   spa.ChannelFL,
	chmap.SpeakerFR:   spa.ChannelFR,
	chmap.SpeakerFC:   spa.ChannelFC,
	chmap.SpeakerLFE:  spa.ChannelLFE,
	chmap.SpeakerBL:   spa.ChannelRL,
	chmap.SpeakerBR:   spa.ChannelRR,
	chmap.SpeakerFLC:  spa.ChannelFLC,
	chmap.SpeakerFRC:  spa.ChannelFRC,
	chmap.SpeakerBC:   spa.ChannelRC,
	chmap.SpeakerSL:   spa.ChannelSL,
	chmap.SpeakerSR:   spa.ChannelSR,
	chmap.SpeakerTC:   spa.ChannelTC,
	chmap.SpeakerTFL:  spa.ChannelTFL,
	chmap.SpeakerTFC:  spa.ChannelTFC,
	chmap.SpeakerTFR:  spa.ChannelTFR,
	chmap.SpeakerTBL:  spa.ChannelTRL,
	chmap.SpeakerTBC:  spa.ChannelTRC,
	chmap.SpeakerTBR:  spa.ChannelTRR,
	chmap.SpeakerLFE2: spa.ChannelLFE2,
	chmap.SpeakerNA:   spa.ChannelNA,
}

// channelPosition returns the SPA position for one speaker
func channelPosition(sp chmap.SpeakerID) (spa.AudioChannel, error) {
	if !sp.Valid() {
		return spa.ChannelUnknown, fmt.Errorf("%w: %s", ErrUnmappedSpeaker, sp)
	}
	return channelPositions[sp], nil
}

// fillPositions writes the positions for m into info. A mono layout is
// announced as the dedicated mono position.
func fillPositions(info *spa.AudioInfoRaw, m chmap.Map) error {
	if m.IsMono() {
		info.Position[0] = spa.ChannelMono
		return nil
	}
	if len(m) > spa.MaxChannels {
		return fmt.Errorf("%w: %d channels", ErrUnmappedSpeaker, len(m))
	}
	for i, sp := range m {
		pos, err := channelPosition(sp)
		if err != nil {
			return err
		}
		info.Position[i] = pos
	}
	return nil
}
