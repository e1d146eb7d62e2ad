package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolset/dcplayer/geo"
)

func TestClosestFrameIDFromTimeAlignsDevices(t *testing.T) {
	v := twoDeviceVideo(t)

	assert.Equal(t, 5.0, v.EpochMs(1))
	assert.Equal(t, 205.0, v.DurationMs())

	id, ok := v.ClosestFrameIDFromTime(1, 102)
	require.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = v.ClosestFrameIDFromTime(1, 2)
	assert.False(t, ok)

	id, ok = v.ClosestFrameIDFromTime(0, 500)
	require.True(t, ok)
	assert.Equal(t, 2, id)

	_, ok = v.ClosestFrameIDFromTime(5, 0)
	assert.False(t, ok)
}

func TestEpochFallsBackToFirstNonEmptyDevice(t *testing.T) {
	v := New(3)
	require.NoError(t, v.AddFrame(1, frameAt(1, 0, 50)))
	require.NoError(t, v.AddFrame(1, frameAt(2, 40, 90)))
	require.NoError(t, v.AddFrame(2, frameAt(1, 0, 30)))

	assert.Equal(t, 0.0, v.EpochMs(1))
	assert.Equal(t, -20.0, v.EpochMs(2))
	assert.Equal(t, 40.0, v.DurationMs())
}

func TestSetEpochMs(t *testing.T) {
	v := twoDeviceVideo(t)
	v.SetEpochMs(1, 0)
	assert.Equal(t, 0.0, v.EpochMs(1))
	assert.Equal(t, 200.0, v.DurationMs())

	id, ok := v.ClosestFrameIDFromTime(1, 0)
	require.True(t, ok)
	assert.Equal(t, 0, id)

	// the shift follows the device through a clone and a trim
	c := v.Clone()
	c.RemoveFramesUntil(1, 1)
	assert.Equal(t, 100.0, c.EpochMs(1))
	assert.Equal(t, 0.0, v.EpochMs(1))

	v.SetEpochMs(0, 30)
	assert.Equal(t, 30.0, v.EpochMs(0))

	v.RemoveAllFrames(1)
	v.SetEpochMs(1, 50)
	assert.Equal(t, 0.0, v.EpochMs(1))
	require.NoError(t, v.AddFrame(1, frameAt(9, 0, 0)))
	assert.Equal(t, 0.0, v.EpochMs(1))
}

func TestAddFrameGrowsDevices(t *testing.T) {
	v := New(0)
	require.NoError(t, v.AddFrame(2, frameAt(1, 0, 0)))
	assert.Equal(t, 3, v.NbDevices())
	assert.Equal(t, 0, v.MinNbFrames())
	assert.Equal(t, 1, v.CountFramesFromAllDevices())
	assert.Equal(t, []int{2}, v.NonEmptyDevices())

	assert.ErrorIs(t, v.AddFrame(-1, frameAt(1, 0, 0)), ErrInvalidDevice)

	v.RemoveLastDevice()
	assert.Equal(t, 2, v.NbDevices())
	assert.Equal(t, 0, v.CountFramesFromAllDevices())
}

func TestKeepOnlyDevices(t *testing.T) {
	v := New(4)
	for d := 0; d < 4; d++ {
		v.SetTransform(d, geo.Translation(geo.Vec3{X: float32(d)}))
		for i := 0; i <= d; i++ {
			require.NoError(t, v.AddFrame(d, frameAt(uint64(i+1), int64(i*10), int64(i*10+d))))
		}
	}

	v.KeepOnlyDevices([]int{3, 1, 3, 9, -2})
	require.Equal(t, 2, v.NbDevices())
	assert.Equal(t, 2, v.NbFrames(0))
	assert.Equal(t, 4, v.NbFrames(1))
	assert.Equal(t, geo.Translation(geo.Vec3{X: 1}), v.Transform(0))
	assert.Equal(t, geo.Translation(geo.Vec3{X: 3}), v.Transform(1))
	// device 3 was received 2ms after device 1
	assert.Equal(t, 2.0, v.EpochMs(1))

	v.KeepOnlyOneDevice(1)
	assert.Equal(t, 1, v.NbDevices())
	assert.Equal(t, 4, v.NbFrames(0))
}

func TestTrimKeepsOrder(t *testing.T) {
	v := twoDeviceVideo(t)
	v.RemoveFramesUntil(0, 1)
	v.RemoveFramesAfter(1, 1)
	requireSorted(t, v)
	assert.Equal(t, 2, v.NbFrames(0))
	assert.Equal(t, 2, v.NbFrames(1))

	v.RemoveAllFrames(0)
	assert.Equal(t, 0, v.NbFrames(0))
	v.RemoveAllDevicesFrames()
	assert.Equal(t, 0, v.CountFramesFromAllDevices())
	assert.Equal(t, 0.0, v.DurationMs())
}

func TestCloneIsIndependent(t *testing.T) {
	v := twoDeviceVideo(t)
	c := v.Clone()
	c.RemoveAllDevicesFrames()
	c.SetTransform(0, geo.Translation(geo.Vec3{Z: 1}))

	assert.Equal(t, 6, v.CountFramesFromAllDevices())
	assert.True(t, v.Transform(0).IsIdentity())
}
