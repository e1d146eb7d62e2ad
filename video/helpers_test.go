package video

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/codec/raw"
	"github.com/toolset/dcplayer/geo"
)

const msToNs = 1000000

func frameAt(id uint64, captureMs, receivedMs int64) *av.CompressedFrame {
	return &av.CompressedFrame{
		IDCapture:         id,
		CaptureTimestamp:  captureMs * msToNs,
		ReceivedTimestamp: receivedMs * msToNs,
	}
}

func cloudFrame(t testing.TB, id uint64, captureMs, receivedMs int64, points ...geo.Vec3) *av.CompressedFrame {
	t.Helper()
	d := &av.DecodedFrame{
		IDCapture:         id,
		CaptureTimestamp:  captureMs * msToNs,
		ReceivedTimestamp: receivedMs * msToNs,
	}
	for _, p := range points {
		d.Cloud.Append(p, geo.Vec3{X: 1, Y: 0.5, Z: 0})
	}
	f, err := raw.New().Encode(d)
	require.NoError(t, err)
	return f
}

// twoDeviceVideo: device 0 at {0,100,200}ms, device 1 at {5,105,205}ms and
// received 5ms after device 0.
func twoDeviceVideo(t testing.TB) *Video {
	t.Helper()
	v := New(2)
	for i, ms := range []int64{0, 100, 200} {
		require.NoError(t, v.AddFrame(0, frameAt(uint64(i+1), ms, ms)))
	}
	for i, ms := range []int64{5, 105, 205} {
		require.NoError(t, v.AddFrame(1, frameAt(uint64(i+1), ms, ms)))
	}
	return v
}

func requireSorted(t testing.TB, v *Video) {
	t.Helper()
	for d := 0; d < v.NbDevices(); d++ {
		frames := v.Device(d).Frames()
		for i := 1; i < len(frames); i++ {
			require.LessOrEqual(t, frames[i-1].CaptureTimestamp, frames[i].CaptureTimestamp)
			require.Less(t, frames[i-1].IDCapture, frames[i].IDCapture)
		}
	}
}
