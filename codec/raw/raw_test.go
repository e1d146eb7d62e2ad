package raw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
)

func sampleFrame(t *testing.T) *av.CompressedFrame {
	t.Helper()
	d := &av.DecodedFrame{
		IDCapture:         4,
		CaptureTimestamp:  100,
		ReceivedTimestamp: 150,
		Images: map[av.ImageKind]*av.Image{
			av.ImageColorRGBA: {Width: 2, Height: 2, Pix: []byte{
				255, 0, 0, 255, 0, 255, 0, 255,
				0, 0, 255, 255, 9, 9, 9, 255,
			}},
			av.ImageDepth16: {Width: 1, Height: 1, Samples: []uint16{1200}},
			av.ImageInfra16: {Width: 1, Height: 2, Samples: []uint16{1, 65535}},
		},
	}
	d.Cloud.Append(geo.Vec3{X: 0.5, Y: -1, Z: 2}, geo.Vec3{X: 1, Y: 0, Z: 0.5})
	d.Cloud.Append(geo.Vec3{X: 0, Y: 0, Z: 0}, geo.Vec3{X: 2, Y: -1, Z: 0})

	f, err := New().Encode(d)
	require.NoError(t, err)
	return f
}

func TestEncodeDecode(t *testing.T) {
	f := sampleFrame(t)
	assert.Equal(t, uint32(2), f.ValidVerticesCount)
	assert.Equal(t, uint64(4), f.IDCapture)

	all := av.GenerationSettings{DecodeColor: true, DecodeDepth: true, DecodeInfra: true, BuildCloud: true, BuildDepthSizedColor: true}
	d, err := New().Decode(all, f)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), d.IDCapture)
	assert.Equal(t, int64(150), d.ReceivedTimestamp)
	assert.Equal(t, byte(9), d.Image(av.ImageColorRGBA).Pix[12])
	assert.Equal(t, []uint16{1200}, d.Image(av.ImageDepth16).Samples)
	assert.Equal(t, []uint16{1, 65535}, d.Image(av.ImageInfra16).Samples)

	sized := d.Image(av.ImageDepthSizedColorRGBA)
	require.NotNil(t, sized)
	assert.Equal(t, 1, sized.Width)
	assert.Equal(t, []byte{255, 0, 0, 255}, sized.Pix)

	require.Equal(t, 2, d.CloudSize())
	assert.Equal(t, geo.Vec3{X: 0.5, Y: -1, Z: 2}, d.Cloud.Vertices[0])
	assert.InDelta(t, 0.5, d.Cloud.Colors[0].Z, 1.0/255)
	assert.Equal(t, geo.Vec3{X: 1, Y: 0, Z: 0}, d.Cloud.Colors[1])
}

func TestDecodeHonoursSettings(t *testing.T) {
	f := sampleFrame(t)
	d, err := New().Decode(av.GenerationSettings{BuildCloud: true}, f)
	require.NoError(t, err)
	assert.Empty(t, d.Images)
	assert.Equal(t, 2, d.CloudSize())

	d, err = New().Decode(av.GenerationSettings{DecodeDepth: true}, f)
	require.NoError(t, err)
	assert.Len(t, d.Images, 1)
	assert.Equal(t, 0, d.CloudSize())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		kind  av.PayloadKind
		bytes []byte
	}{
		{name: "short_color_header", kind: av.PayloadColor, bytes: []byte{1}},
		{name: "color_size_mismatch", kind: av.PayloadColor, bytes: []byte{1, 0, 1, 0, 1, 2}},
		{name: "depth_size_mismatch", kind: av.PayloadDepth, bytes: []byte{2, 0, 1, 0, 1, 2}},
		{name: "cloud_size_mismatch", kind: av.PayloadCloud, bytes: []byte{5, 0, 0, 0, 1}},
	}

	all := av.GenerationSettings{DecodeColor: true, DecodeDepth: true, BuildCloud: true}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &av.CompressedFrame{IDCapture: 1}
			f.Payloads[tt.kind] = tt.bytes
			_, err := New().Decode(all, f)
			assert.ErrorIs(t, err, av.ErrDecode)
		})
	}
}
