package video

import (
	"fmt"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/utils/parallel"

	log "github.com/sirupsen/logrus"
)

// MergeParams describes the voxel grid used to fuse the device clouds.
type MergeParams struct {
	VoxelSize float32
	Min, Max  geo.Vec3
	// Workers bounds parallel decoding, <= 0 means one per cpu.
	Workers int
}

func (p MergeParams) String() string {
	return fmt.Sprintf("<voxel: %g, min: %v, max: %v>", p.VoxelSize, p.Min, p.Max)
}

const referenceDevice = 0

// merger decodes one instant of every device and fuses the clouds.
type merger struct {
	video    *Video
	dec      av.Decoder
	settings av.GenerationSettings
	grid     *geo.VoxelGrid
	workers  int
}

func (v *Video) newMerger(dec av.Decoder, settings av.GenerationSettings, params MergeParams) (*merger, error) {
	if v.NbDevices() == 0 {
		return nil, ErrIncompatibleDeviceCount
	}
	grid, err := geo.NewVoxelGrid(params.VoxelSize, params.Min, params.Max)
	if err != nil {
		return nil, err
	}
	grid.SetWorkers(params.Workers)
	if v.devices[referenceDevice].Empty() {
		return nil, ErrEmptyFrame
	}
	settings.BuildCloud = true
	return &merger{
		video:    v,
		dec:      dec,
		settings: settings,
		grid:     grid,
		workers:  params.Workers,
	}, nil
}

// instant fuses frame refID of the reference device with the closest frame
// of every other device. The returned frame carries the reference timestamps.
func (m *merger) instant(refID int) (*av.DecodedFrame, error) {
	v := m.video
	ref := v.devices[referenceDevice].Frame(refID)
	if ref == nil {
		return nil, fmt.Errorf("reference frame %d: %w", refID, ErrInvalidFrame)
	}
	t := v.GlobalFrameTimeMs(referenceDevice, refID)

	n := v.NbDevices()
	decoded := make([]*av.DecodedFrame, n)
	errs := make([]error, n)
	parallel.ForEach(n, m.workers, func(d int) {
		id := refID
		if d != referenceDevice {
			var ok bool
			if id, ok = v.ClosestFrameIDFromTime(d, t); !ok {
				return
			}
		}
		decoded[d], errs[d] = m.dec.Decode(m.settings, v.devices[d].Frame(id))
	})

	if errs[referenceDevice] != nil {
		return nil, fmt.Errorf("reference frame %d: %w", refID, errs[referenceDevice])
	}

	m.grid.Reset()
	for d := 0; d < n; d++ {
		if errs[d] != nil {
			log.WithFields(log.Fields{
				"device": d,
				"time":   t,
			}).Warningf("[merge] skip device: %v", errs[d])
			continue
		}
		if decoded[d] == nil {
			continue
		}
		m.grid.AddCloud(&decoded[d].Cloud, v.devices[d].Transform)
	}

	out := &av.DecodedFrame{
		IDCapture:         ref.IDCapture,
		CaptureTimestamp:  ref.CaptureTimestamp,
		ReceivedTimestamp: ref.ReceivedTimestamp,
		Images:            make(map[av.ImageKind]*av.Image),
		Cloud:             m.grid.Cloud(),
	}
	return out, nil
}

// Merge fuses every device into a single device video, one frame per frame
// of the reference device. v is not modified.
func (v *Video) Merge(dec av.Decoder, enc av.Encoder, settings av.GenerationSettings, params MergeParams) (*Video, error) {
	m, err := v.newMerger(dec, settings, params)
	if err != nil {
		return nil, err
	}

	out := New(1)
	nbFrames := v.devices[referenceDevice].Len()
	for id := 0; id < nbFrames; id++ {
		merged, err := m.instant(id)
		if err != nil {
			return nil, err
		}
		f, err := enc.Encode(merged)
		if err != nil {
			return nil, fmt.Errorf("encode merged frame %d: %w", id, err)
		}
		f.ValidVerticesCount = uint32(merged.Cloud.Len())
		if err := out.devices[0].Append(f); err != nil {
			return nil, fmt.Errorf("merged frame %d: %w", id, err)
		}
		log.Debugf("[merge] frame %d/%d: %d points, %d discarded", id+1, nbFrames, merged.Cloud.Len(), m.grid.Discarded())
	}

	log.WithFields(log.Fields{
		"devices": v.NbDevices(),
		"frames":  nbFrames,
		"params":  params.String(),
	}).Info("devices merged")
	return out, nil
}

// MergeAllDevices replaces the devices of v with the result of Merge. On
// error v is unchanged.
func (v *Video) MergeAllDevices(dec av.Decoder, enc av.Encoder, settings av.GenerationSettings, params MergeParams) error {
	merged, err := v.Merge(dec, enc, settings, params)
	if err != nil {
		return err
	}
	v.devices = merged.devices
	return nil
}

// MergeDevicesFrameID fuses a single instant, frame id of the reference
// device, without modifying v.
func (v *Video) MergeDevicesFrameID(dec av.Decoder, settings av.GenerationSettings, params MergeParams, id int) (*av.DecodedFrame, error) {
	m, err := v.newMerger(dec, settings, params)
	if err != nil {
		return nil, err
	}
	return m.instant(id)
}
