// Package raw is an uncompressed payload codec. Every payload is a small
// header followed by the samples as they are in memory:
//
//	color       : width u16 | height u16 | width*height RGBA bytes
//	depth, infra: width u16 | height u16 | width*height u16 samples
//	cloud       : count u32 | count x ( x, y, z f32 | r, g, b u8 )
package raw

import (
	"fmt"
	"math"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/utils/pio"
)

const (
	imageHeaderLen = 4
	cloudHeaderLen = 4
	cloudPointLen  = 3*4 + 3
)

// Codec is stateless and safe for concurrent use.
type Codec struct {
}

func New() *Codec {
	return &Codec{}
}

func (codec *Codec) Decode(settings av.GenerationSettings, f *av.CompressedFrame) (*av.DecodedFrame, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", av.ErrDecode)
	}
	d := av.NewDecodedFrame(f)

	var color, depth *av.Image
	var err error
	if (settings.DecodeColor || settings.BuildDepthSizedColor) && f.Has(av.PayloadColor) {
		if color, err = decodeRGBA(f.Payload(av.PayloadColor)); err != nil {
			return nil, fmt.Errorf("%w: frame %d color: %v", av.ErrDecode, f.IDCapture, err)
		}
		if settings.DecodeColor {
			d.Images[av.ImageColorRGBA] = color
		}
	}
	if (settings.DecodeDepth || settings.BuildDepthSizedColor) && f.Has(av.PayloadDepth) {
		if depth, err = decode16(f.Payload(av.PayloadDepth)); err != nil {
			return nil, fmt.Errorf("%w: frame %d depth: %v", av.ErrDecode, f.IDCapture, err)
		}
		if settings.DecodeDepth {
			d.Images[av.ImageDepth16] = depth
		}
	}
	if settings.DecodeInfra && f.Has(av.PayloadInfra) {
		infra, err := decode16(f.Payload(av.PayloadInfra))
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d infra: %v", av.ErrDecode, f.IDCapture, err)
		}
		d.Images[av.ImageInfra16] = infra
	}
	if settings.BuildDepthSizedColor && !color.Empty() && !depth.Empty() {
		d.Images[av.ImageDepthSizedColorRGBA] = resizeRGBA(color, depth.Width, depth.Height)
	}
	if settings.BuildCloud && f.Has(av.PayloadCloud) {
		if d.Cloud, err = decodeCloud(f.Payload(av.PayloadCloud)); err != nil {
			return nil, fmt.Errorf("%w: frame %d cloud: %v", av.ErrDecode, f.IDCapture, err)
		}
	}
	return d, nil
}

func (codec *Codec) Encode(d *av.DecodedFrame) (*av.CompressedFrame, error) {
	if d == nil {
		return nil, fmt.Errorf("raw encode: nil frame")
	}
	f := &av.CompressedFrame{
		CaptureTimestamp:   d.CaptureTimestamp,
		ReceivedTimestamp:  d.ReceivedTimestamp,
		IDCapture:          d.IDCapture,
		ValidVerticesCount: uint32(d.Cloud.Len()),
	}
	var err error
	if img := d.Image(av.ImageColorRGBA); img != nil {
		if f.Payloads[av.PayloadColor], err = encodeRGBA(img); err != nil {
			return nil, err
		}
	}
	if img := d.Image(av.ImageDepth16); img != nil {
		if f.Payloads[av.PayloadDepth], err = encode16(img); err != nil {
			return nil, err
		}
	}
	if img := d.Image(av.ImageInfra16); img != nil {
		if f.Payloads[av.PayloadInfra], err = encode16(img); err != nil {
			return nil, err
		}
	}
	f.Payloads[av.PayloadCloud] = EncodeCloud(&d.Cloud)
	return f, nil
}

func imageHeader(b []byte) (int, int, error) {
	if len(b) < imageHeaderLen {
		return 0, 0, fmt.Errorf("short image header (%d bytes)", len(b))
	}
	return int(pio.U16LE(b[0:2])), int(pio.U16LE(b[2:4])), nil
}

func decodeRGBA(b []byte) (*av.Image, error) {
	w, h, err := imageHeader(b)
	if err != nil {
		return nil, err
	}
	if want := imageHeaderLen + w*h*4; len(b) != want {
		return nil, fmt.Errorf("%dx%d rgba needs %d bytes, got %d", w, h, want, len(b))
	}
	pix := make([]byte, w*h*4)
	copy(pix, b[imageHeaderLen:])
	return &av.Image{Width: w, Height: h, Pix: pix}, nil
}

func decode16(b []byte) (*av.Image, error) {
	w, h, err := imageHeader(b)
	if err != nil {
		return nil, err
	}
	if want := imageHeaderLen + w*h*2; len(b) != want {
		return nil, fmt.Errorf("%dx%d u16 image needs %d bytes, got %d", w, h, want, len(b))
	}
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = pio.U16LE(b[imageHeaderLen+i*2:])
	}
	return &av.Image{Width: w, Height: h, Samples: samples}, nil
}

func decodeCloud(b []byte) (geo.ColoredCloud, error) {
	if len(b) < cloudHeaderLen {
		return geo.ColoredCloud{}, fmt.Errorf("short cloud header (%d bytes)", len(b))
	}
	count := int(pio.U32LE(b[0:4]))
	if want := cloudHeaderLen + count*cloudPointLen; len(b) != want {
		return geo.ColoredCloud{}, fmt.Errorf("cloud of %d points needs %d bytes, got %d", count, want, len(b))
	}
	cloud := geo.NewColoredCloud(count)
	for i := 0; i < count; i++ {
		p := b[cloudHeaderLen+i*cloudPointLen:]
		cloud.Vertices[i] = geo.Vec3{X: pio.F32LE(p[0:4]), Y: pio.F32LE(p[4:8]), Z: pio.F32LE(p[8:12])}
		cloud.Colors[i] = geo.Vec3{X: float32(p[12]) / 255, Y: float32(p[13]) / 255, Z: float32(p[14]) / 255}
	}
	return cloud, nil
}

func checkSize(img *av.Image) error {
	if img.Width < 0 || img.Height < 0 || img.Width > math.MaxUint16 || img.Height > math.MaxUint16 {
		return fmt.Errorf("raw encode: image size %dx%d out of range", img.Width, img.Height)
	}
	return nil
}

func encodeRGBA(img *av.Image) ([]byte, error) {
	if err := checkSize(img); err != nil {
		return nil, err
	}
	n := img.Width * img.Height * 4
	if len(img.Pix) != n {
		return nil, fmt.Errorf("raw encode: %dx%d rgba with %d bytes", img.Width, img.Height, len(img.Pix))
	}
	b := make([]byte, imageHeaderLen+n)
	pio.PutU16LE(b[0:2], uint16(img.Width))
	pio.PutU16LE(b[2:4], uint16(img.Height))
	copy(b[imageHeaderLen:], img.Pix)
	return b, nil
}

func encode16(img *av.Image) ([]byte, error) {
	if err := checkSize(img); err != nil {
		return nil, err
	}
	n := img.Width * img.Height
	if len(img.Samples) != n {
		return nil, fmt.Errorf("raw encode: %dx%d image with %d samples", img.Width, img.Height, len(img.Samples))
	}
	b := make([]byte, imageHeaderLen+n*2)
	pio.PutU16LE(b[0:2], uint16(img.Width))
	pio.PutU16LE(b[2:4], uint16(img.Height))
	for i, s := range img.Samples {
		pio.PutU16LE(b[imageHeaderLen+i*2:], s)
	}
	return b, nil
}

// EncodeCloud serializes a colored cloud. Colors are clamped to [0,1] and
// quantized to 8 bits, a cloud without colors is stored black.
func EncodeCloud(cloud *geo.ColoredCloud) []byte {
	n := cloud.Len()
	hasColors := cloud.HasColors()
	b := make([]byte, cloudHeaderLen+n*cloudPointLen)
	pio.PutU32LE(b[0:4], uint32(n))
	for i, v := range cloud.Vertices {
		p := b[cloudHeaderLen+i*cloudPointLen:]
		pio.PutF32LE(p[0:4], v.X)
		pio.PutF32LE(p[4:8], v.Y)
		pio.PutF32LE(p[8:12], v.Z)
		if hasColors {
			c := cloud.Colors[i]
			p[12], p[13], p[14] = quantize(c.X), quantize(c.Y), quantize(c.Z)
		}
	}
	return b
}

func quantize(c float32) byte {
	if !(c > 0) {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return byte(math.Round(float64(c) * 255))
}

// resizeRGBA samples src at the nearest pixel for every pixel of a w x h image.
func resizeRGBA(src *av.Image, w, h int) *av.Image {
	dst := &av.Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for y := 0; y < h; y++ {
		sy := y * src.Height / h
		for x := 0; x < w; x++ {
			sx := x * src.Width / w
			copy(dst.Pix[(y*w+x)*4:(y*w+x)*4+4], src.Pix[(sy*src.Width+sx)*4:])
		}
	}
	return dst
}
