package dcv

import (
	"fmt"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/utils/pio"
)

/*
dcv 파일 구조 (little endian)

	header : magic "DCVF" | version u32 | device count u32
	devices: device count x ( transform 16 x f32 row-major | frame count u32 )
	frames : 장치 순서대로 frame count 개
	         captureTs i64 | receivedTs i64 | idCapture u64 | validVertices u32 |
	         Color, Depth, Infra, Cloud 순서로 present u8 [ length u32 | bytes ]
*/

const (
	Version = 1

	// MaxPayloadSize bounds a single payload. Larger lengths are garbage.
	MaxPayloadSize = 256 * 1024 * 1024

	// MaxDevices bounds the device count of a file header.
	MaxDevices = 1024

	fileHeaderLen   = 12
	deviceHeaderLen = 16*4 + 4
	frameHeaderLen  = 8 + 8 + 8 + 4
)

var magic = []byte{'D', 'C', 'V', 'F'}

var (
	ErrCorrupt   = fmt.Errorf("corrupt dcv file")
	ErrTruncated = fmt.Errorf("truncated dcv file")
)

// DeviceHeader 는 장치별 변환 행렬과 뒤따르는 프레임 개수이다.
type DeviceHeader struct {
	Transform geo.Mat4
	NbFrames  uint32
}

func parseFileHeader(b []byte) (nbDevices uint32, err error) {
	if string(b[0:4]) != string(magic) {
		return 0, fmt.Errorf("%w: bad magic %q", ErrCorrupt, b[0:4])
	}
	if v := pio.U32LE(b[4:8]); v != Version {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	n := pio.U32LE(b[8:12])
	if n > MaxDevices {
		return 0, fmt.Errorf("%w: device count %d exceeds %d", ErrCorrupt, n, MaxDevices)
	}
	return n, nil
}

func putFileHeader(b []byte, nbDevices uint32) {
	copy(b[0:4], magic)
	pio.PutU32LE(b[4:8], Version)
	pio.PutU32LE(b[8:12], nbDevices)
}

func parseDeviceHeader(b []byte) DeviceHeader {
	var h DeviceHeader
	for i := 0; i < 16; i++ {
		h.Transform[i] = pio.F32LE(b[i*4:])
	}
	h.NbFrames = pio.U32LE(b[64:68])
	return h
}

func putDeviceHeader(b []byte, h DeviceHeader) {
	for i := 0; i < 16; i++ {
		pio.PutF32LE(b[i*4:], h.Transform[i])
	}
	pio.PutU32LE(b[64:68], h.NbFrames)
}

func parseFrameHeader(b []byte, f *av.CompressedFrame) {
	f.CaptureTimestamp = pio.I64LE(b[0:8])
	f.ReceivedTimestamp = pio.I64LE(b[8:16])
	f.IDCapture = pio.U64LE(b[16:24])
	f.ValidVerticesCount = pio.U32LE(b[24:28])
}

func putFrameHeader(b []byte, f *av.CompressedFrame) {
	pio.PutI64LE(b[0:8], f.CaptureTimestamp)
	pio.PutI64LE(b[8:16], f.ReceivedTimestamp)
	pio.PutU64LE(b[16:24], f.IDCapture)
	pio.PutU32LE(b[24:28], f.ValidVerticesCount)
}
