package av

import (
	"errors"
	"fmt"

	"github.com/toolset/dcplayer/geo"
)

// PayloadKind 는 한 프레임 안에 들어갈 수 있는 압축 데이터의 종류이다.
// 파일에는 항상 Color, Depth, Infra, Cloud 순서로 기록된다.
type PayloadKind uint8

const (
	PayloadColor PayloadKind = iota
	PayloadDepth
	PayloadInfra
	PayloadCloud
	PayloadKindCount
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadColor:
		return "color"
	case PayloadDepth:
		return "depth"
	case PayloadInfra:
		return "infra"
	case PayloadCloud:
		return "cloud"
	}
	return fmt.Sprintf("payload(%d)", uint8(k))
}

// ErrDecode wraps every failure reported by a Decoder.
var ErrDecode = errors.New("decode failed")

// CompressedFrame 는 한 장치가 한 순간에 캡처한 데이터를 압축된 상태로 담는다.
// CaptureTimestamp 는 장치 시계 기준 캡처 시각(ns), ReceivedTimestamp 는 호스트가 받은 시각(ns)이다.
// IDCapture 는 장치 안에서 엄격하게 증가한다. 저장된 이후에는 수정하지 않는다.
type CompressedFrame struct {
	CaptureTimestamp   int64
	ReceivedTimestamp  int64
	IDCapture          uint64
	ValidVerticesCount uint32
	Payloads           [PayloadKindCount][]byte
}

func (f *CompressedFrame) Has(kind PayloadKind) bool {
	return kind < PayloadKindCount && f.Payloads[kind] != nil
}

func (f *CompressedFrame) Payload(kind PayloadKind) []byte {
	if kind >= PayloadKindCount {
		return nil
	}
	return f.Payloads[kind]
}

// PayloadSize is the total number of compressed bytes held by the frame.
func (f *CompressedFrame) PayloadSize() int {
	n := 0
	for _, p := range f.Payloads {
		n += len(p)
	}
	return n
}

// Clone deep copies the frame, payload bytes included.
func (f *CompressedFrame) Clone() *CompressedFrame {
	c := *f
	for i, p := range f.Payloads {
		if p != nil {
			c.Payloads[i] = append([]byte{}, p...)
		}
	}
	return &c
}

func (f *CompressedFrame) String() string {
	return fmt.Sprintf("<id: %d, capture: %d, received: %d, vertices: %d, bytes: %d>",
		f.IDCapture, f.CaptureTimestamp, f.ReceivedTimestamp, f.ValidVerticesCount, f.PayloadSize())
}

// ImageKind identifies the pixel layout of an Image.
type ImageKind uint8

const (
	ImageColorRGBA ImageKind = iota
	ImageDepth16
	ImageInfra16
	ImageDepthSizedColorRGBA
)

// Image is a decoded 2d image. RGBA images use Pix, 16 bit images use Samples.
type Image struct {
	Width   int
	Height  int
	Pix     []byte
	Samples []uint16
}

func (img *Image) Empty() bool {
	return img == nil || img.Width == 0 || img.Height == 0
}

// DecodedFrame 는 디코더가 생성한 결과물이다. 설정에서 요청하지 않은 이미지는 Images 에 없다.
type DecodedFrame struct {
	IDCapture         uint64
	CaptureTimestamp  int64
	ReceivedTimestamp int64
	Images            map[ImageKind]*Image
	Cloud             geo.ColoredCloud
}

func NewDecodedFrame(f *CompressedFrame) *DecodedFrame {
	return &DecodedFrame{
		IDCapture:         f.IDCapture,
		CaptureTimestamp:  f.CaptureTimestamp,
		ReceivedTimestamp: f.ReceivedTimestamp,
		Images:            make(map[ImageKind]*Image),
	}
}

func (f *DecodedFrame) Image(kind ImageKind) *Image {
	if f == nil {
		return nil
	}
	return f.Images[kind]
}

// CloudSize is the number of vertices in the decoded cloud.
func (f *DecodedFrame) CloudSize() int {
	if f == nil {
		return 0
	}
	return f.Cloud.Len()
}

// GenerationSettings selects which products a Decoder builds.
type GenerationSettings struct {
	DecodeColor          bool
	DecodeDepth          bool
	DecodeInfra          bool
	BuildCloud           bool
	BuildDepthSizedColor bool
}

func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		DecodeColor:          true,
		DecodeDepth:          true,
		DecodeInfra:          false,
		BuildCloud:           true,
		BuildDepthSizedColor: false,
	}
}

func (s GenerationSettings) String() string {
	return fmt.Sprintf("<color: %v, depth: %v, infra: %v, cloud: %v, depth_sized_color: %v>",
		s.DecodeColor, s.DecodeDepth, s.DecodeInfra, s.BuildCloud, s.BuildDepthSizedColor)
}

// Decoder turns a compressed frame into images and a cloud. Implementations
// must be safe for concurrent use: the player decodes devices in parallel.
type Decoder interface {
	Decode(settings GenerationSettings, f *CompressedFrame) (*DecodedFrame, error)
}

// Encoder compresses a decoded frame, used to store the result of a merge.
type Encoder interface {
	Encode(d *DecodedFrame) (*CompressedFrame, error)
}
