//go:build !linux

package announce

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	devOnce  sync.Once

	playBuf  atomic.Pointer[[]byte]
	playPos  atomic.Uint32
	playMu   sync.Mutex
	playDone chan struct{}
)

func initDevice() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{
		Data: dataCallback,
	})
	if err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	buf := playBuf.Load()
	if buf == nil || len(*buf) == 0 {
		zero(pOutput)
		return
	}

	pos := playPos.Load()
	total := uint32(len(*buf))
	want := frameCount * 2
	remaining := total - pos

	if remaining == 0 {
		playBuf.Store(nil)
		if playDone != nil {
			select {
			case playDone <- struct{}{}:
			default:
			}
		}
		zero(pOutput)
		return
	}

	if want > remaining {
		want = remaining
	}
	copy(pOutput[:want], (*buf)[pos:pos+want])
	playPos.Store(pos + want)
	for i := want; i < frameCount*2; i++ {
		pOutput[i] = 0
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	devOnce.Do(initDevice)
	if device == nil {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}

	device.Stop()
	playDone = make(chan struct{}, 1)
	playPos.Store(0)
	playBuf.Store(&buf)

	if err := device.Start(); err != nil {
		playBuf.Store(nil)
		return
	}
	<-playDone
	device.Stop()
}
