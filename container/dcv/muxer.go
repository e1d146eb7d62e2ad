package dcv

import (
	"fmt"
	"io"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/utils/pio"
)

// Muxer 는 헤더와 프레임을 순서대로 기록한다. 프레임은 장치 순서대로, 장치 헤더에
// 기록한 개수만큼 써야 한다.
type Muxer struct {
	w       io.Writer
	buf     []byte
	devices []DeviceHeader
	device  int
	written uint32
}

func NewMuxer(w io.Writer) *Muxer {
	return &Muxer{
		w:   w,
		buf: make([]byte, deviceHeaderLen),
	}
}

func (muxer *Muxer) WriteHeader(devices []DeviceHeader) error {
	if len(devices) > MaxDevices {
		return fmt.Errorf("dcv muxer: %d devices exceeds %d", len(devices), MaxDevices)
	}
	h := muxer.buf[:fileHeaderLen]
	putFileHeader(h, uint32(len(devices)))
	if _, err := muxer.w.Write(h); err != nil {
		return err
	}
	for _, d := range devices {
		b := muxer.buf[:deviceHeaderLen]
		putDeviceHeader(b, d)
		if _, err := muxer.w.Write(b); err != nil {
			return err
		}
	}
	muxer.devices = devices
	muxer.device = 0
	muxer.written = 0
	muxer.skipFinishedDevices()
	return nil
}

// WriteFrame appends the next frame and returns the device it was counted for.
func (muxer *Muxer) WriteFrame(f *av.CompressedFrame) (int, error) {
	if muxer.device >= len(muxer.devices) {
		return -1, fmt.Errorf("dcv muxer: all %d devices already written", len(muxer.devices))
	}
	device := muxer.device

	h := muxer.buf[:frameHeaderLen]
	putFrameHeader(h, f)
	if _, err := muxer.w.Write(h); err != nil {
		return device, err
	}

	for kind := av.PayloadKind(0); kind < av.PayloadKindCount; kind++ {
		payload := f.Payloads[kind]
		if payload == nil {
			pio.PutU8(muxer.buf[:1], 0)
			if _, err := muxer.w.Write(muxer.buf[:1]); err != nil {
				return device, err
			}
			continue
		}
		if len(payload) > MaxPayloadSize {
			return device, fmt.Errorf("dcv muxer: %v payload of %d bytes exceeds %d", kind, len(payload), MaxPayloadSize)
		}
		b := muxer.buf[:5]
		pio.PutU8(b[0:1], 1)
		pio.PutU32LE(b[1:5], uint32(len(payload)))
		if _, err := muxer.w.Write(b); err != nil {
			return device, err
		}
		if _, err := muxer.w.Write(payload); err != nil {
			return device, err
		}
	}

	muxer.written++
	muxer.skipFinishedDevices()
	return device, nil
}

func (muxer *Muxer) skipFinishedDevices() {
	for muxer.device < len(muxer.devices) && muxer.written >= muxer.devices[muxer.device].NbFrames {
		muxer.device++
		muxer.written = 0
	}
}
