// ABOUTME: Indirections over malgo calls
// ABOUTME: Tests replace these to run without an audio device
package miniaudio

import "github.com/gen2brain/malgo"

var (
	malgoInitContext         = malgo.InitContext
	malgoDefaultDeviceConfig = malgo.DefaultDeviceConfig
	malgoInitDevice          = malgo.InitDevice
	malgoContextUninit       = (*malgo.AllocatedContext).Uninit
	malgoContextFree         = (*malgo.AllocatedContext).Free
	malgoDeviceStart         = (*malgo.Device).Start
	malgoDeviceStop          = (*malgo.Device).Stop
	malgoDeviceUninit        = (*malgo.Device).Uninit
)
