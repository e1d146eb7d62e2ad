// Package video holds the multi-device frame container: one Sequence of
// compressed frames per device, aligned on a common timeline by the arrival
// time of each device's first frame.
package video

import (
	"errors"
	"fmt"
	"sort"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/container/dcv"
	"github.com/toolset/dcplayer/geo"
)

var (
	ErrCorrupt   = dcv.ErrCorrupt
	ErrTruncated = dcv.ErrTruncated

	ErrOutOfOrder              = errors.New("frame is older than the last frame of the device")
	ErrInvalidDevice           = errors.New("invalid device index")
	ErrInvalidFrame            = errors.New("invalid frame index")
	ErrNoFrames                = errors.New("video has no frames")
	ErrIncompatibleDeviceCount = errors.New("incompatible device count")
	ErrEmptyFrame              = errors.New("reference device has no frames")
	ErrInvalidVoxelSize        = geo.ErrInvalidVoxelSize
	ErrInvalidBounds           = geo.ErrInvalidBounds
)

// Video is not safe for concurrent use. The player serializes every access.
type Video struct {
	devices []*Sequence
}

func New(nbDevices int) *Video {
	v := &Video{}
	for i := 0; i < nbDevices; i++ {
		v.AddDevice()
	}
	return v
}

func (v *Video) NbDevices() int {
	return len(v.devices)
}

// AddDevice appends an empty device with an identity transform and returns its index.
func (v *Video) AddDevice() int {
	v.devices = append(v.devices, NewSequence())
	return len(v.devices) - 1
}

func (v *Video) RemoveLastDevice() {
	if n := len(v.devices); n > 0 {
		v.devices[n-1] = nil
		v.devices = v.devices[:n-1]
	}
}

// Device returns the sequence of device d, nil when d is out of range.
func (v *Video) Device(d int) *Sequence {
	if d < 0 || d >= len(v.devices) {
		return nil
	}
	return v.devices[d]
}

func (v *Video) NbFrames(d int) int {
	if seq := v.Device(d); seq != nil {
		return seq.Len()
	}
	return 0
}

func (v *Video) Frame(d, id int) *av.CompressedFrame {
	if seq := v.Device(d); seq != nil {
		return seq.Frame(id)
	}
	return nil
}

// AddFrame appends frame to device d, adding devices up to d when needed.
func (v *Video) AddFrame(d int, frame *av.CompressedFrame) error {
	if d < 0 {
		return ErrInvalidDevice
	}
	for len(v.devices) <= d {
		v.AddDevice()
	}
	return v.devices[d].Append(frame)
}

func (v *Video) ReplaceFrame(d, id int, frame *av.CompressedFrame) error {
	seq := v.Device(d)
	if seq == nil {
		return ErrInvalidDevice
	}
	return seq.Replace(id, frame)
}

func (v *Video) Transform(d int) geo.Mat4 {
	if seq := v.Device(d); seq != nil {
		return seq.Transform
	}
	return geo.Identity()
}

func (v *Video) SetTransform(d int, m geo.Mat4) {
	if seq := v.Device(d); seq != nil {
		seq.Transform = m
	}
}

func (v *Video) Transforms() []geo.Mat4 {
	out := make([]geo.Mat4, len(v.devices))
	for i, seq := range v.devices {
		out[i] = seq.Transform
	}
	return out
}

func (v *Video) CountFramesFromAllDevices() int {
	n := 0
	for _, seq := range v.devices {
		n += seq.Len()
	}
	return n
}

// MinNbFrames is the smallest frame count over every device, 0 without devices.
func (v *Video) MinNbFrames() int {
	if len(v.devices) == 0 {
		return 0
	}
	min := v.devices[0].Len()
	for _, seq := range v.devices[1:] {
		if seq.Len() < min {
			min = seq.Len()
		}
	}
	return min
}

func (v *Video) FirstFrameReceivedTimestamp(d int) (int64, bool) {
	seq := v.Device(d)
	if seq == nil || seq.Empty() {
		return 0, false
	}
	return seq.FirstReceivedTimestamp(), true
}

func (v *Video) LastFrameReceivedTimestamp(d int) (int64, bool) {
	seq := v.Device(d)
	if seq == nil || seq.Empty() {
		return 0, false
	}
	return seq.LastReceivedTimestamp(), true
}

// referenceDevice is device 0, or the first device with frames when device 0 is empty.
func (v *Video) referenceDevice() (int, bool) {
	for d, seq := range v.devices {
		if !seq.Empty() {
			return d, true
		}
	}
	return 0, false
}

// EpochMs is the offset of device d on the global timeline: the arrival of
// its first frame minus the arrival of the reference device's first frame,
// plus the shift set by SetEpochMs.
func (v *Video) EpochMs(d int) float64 {
	seq := v.Device(d)
	if seq == nil || seq.Empty() {
		return 0
	}
	return v.arrivalEpochMs(d) + seq.epochShiftMs
}

func (v *Video) arrivalEpochMs(d int) float64 {
	ref, ok := v.referenceDevice()
	if !ok {
		return 0
	}
	return nsToMs(v.devices[d].FirstReceivedTimestamp() - v.devices[ref].FirstReceivedTimestamp())
}

// SetEpochMs places the first frame of device d at epochMs on the global
// timeline. The shift lives in memory only: a saved file keeps the arrival
// timestamps. It is ignored while the device is empty.
func (v *Video) SetEpochMs(d int, epochMs float64) {
	seq := v.Device(d)
	if seq == nil || seq.Empty() {
		return
	}
	seq.epochShiftMs = epochMs - v.arrivalEpochMs(d)
}

func (v *Video) DeviceDurationMs(d int) float64 {
	if seq := v.Device(d); seq != nil {
		return seq.DurationMs()
	}
	return 0
}

// DurationMs is the end of the last device on the global timeline.
func (v *Video) DurationMs() float64 {
	var duration float64
	for d, seq := range v.devices {
		if seq.Empty() {
			continue
		}
		if end := v.EpochMs(d) + seq.DurationMs(); end > duration {
			duration = end
		}
	}
	return duration
}

// ClosestFrameIDFromTime maps a global time to a frame of device d.
func (v *Video) ClosestFrameIDFromTime(d int, timeMs float64) (int, bool) {
	seq := v.Device(d)
	if seq == nil {
		return 0, false
	}
	return seq.ClosestFrameID(timeMs - v.EpochMs(d))
}

// GlobalFrameTimeMs is the time of frame id of device d on the global timeline.
func (v *Video) GlobalFrameTimeMs(d, id int) float64 {
	seq := v.Device(d)
	if seq == nil {
		return 0
	}
	return v.EpochMs(d) + seq.FrameTimeMs(id)
}

func (v *Video) RemoveFramesUntil(d, id int) {
	if seq := v.Device(d); seq != nil {
		seq.RemoveUntil(id)
	}
}

func (v *Video) RemoveFramesAfter(d, id int) {
	if seq := v.Device(d); seq != nil {
		seq.RemoveAfter(id)
	}
}

func (v *Video) RemoveAllFrames(d int) {
	if seq := v.Device(d); seq != nil {
		seq.Clear()
	}
}

func (v *Video) RemoveAllDevicesFrames() {
	for _, seq := range v.devices {
		seq.Clear()
	}
}

// KeepOnlyDevices keeps the listed devices, renumbered densely in ascending
// index order. Invalid and duplicate ids are ignored.
func (v *Video) KeepOnlyDevices(ids []int) {
	keep := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(v.devices) {
			keep[id] = struct{}{}
		}
	}
	sorted := make([]int, 0, len(keep))
	for id := range keep {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	devices := make([]*Sequence, 0, len(sorted))
	for _, id := range sorted {
		devices = append(devices, v.devices[id])
	}
	v.devices = devices
}

func (v *Video) KeepOnlyOneDevice(d int) {
	v.KeepOnlyDevices([]int{d})
}

// NonEmptyDevices lists the devices holding at least one frame.
func (v *Video) NonEmptyDevices() []int {
	var ids []int
	for d, seq := range v.devices {
		if !seq.Empty() {
			ids = append(ids, d)
		}
	}
	return ids
}

// Clone copies the device list. Frames are shared.
func (v *Video) Clone() *Video {
	c := &Video{devices: make([]*Sequence, len(v.devices))}
	for i, seq := range v.devices {
		c.devices[i] = seq.Clone()
	}
	return c
}

// GenerateFrame decodes frame id of device d.
func (v *Video) GenerateFrame(dec av.Decoder, settings av.GenerationSettings, d, id int) (*av.DecodedFrame, error) {
	f := v.Frame(d, id)
	if f == nil {
		return nil, fmt.Errorf("device %d frame %d: %w", d, id, ErrInvalidFrame)
	}
	return dec.Decode(settings, f)
}

func (v *Video) String() string {
	return fmt.Sprintf("<devices: %d, frames: %d, duration: %.1fms>",
		v.NbDevices(), v.CountFramesFromAllDevices(), v.DurationMs())
}
