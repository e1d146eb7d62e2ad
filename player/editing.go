package player

import (
	log "github.com/sirupsen/logrus"

	"github.com/toolset/dcplayer/video"
)

// RemoveUntilCurrentFrame drops, on every device, the frames before the
// selected one, then rewinds to 0. The selected frames become frame 0 and
// all start at 0 on the timeline, whatever their arrival timestamps say.
// A device that has not started yet keeps its distance to the cut.
func (player *Player) RemoveUntilCurrentFrame() {
	player.lock.Lock()
	defer player.lock.Unlock()

	now := player.clock.ElapsedMs()
	epochs := make([]float64, len(player.devices))
	for d := range player.devices {
		epochs[d] = player.video.EpochMs(d)
	}

	for d := range player.devices {
		ds := &player.devices[d]
		if ds.frameID < 0 {
			continue
		}
		player.video.RemoveFramesUntil(d, ds.frameID)
		ds.frameID = 0
	}
	// 잘라낸 뒤 기준 장치가 바뀌므로 epoch 를 다시 맞춘다.
	for d := range player.devices {
		if player.devices[d].frameID == 0 {
			player.video.SetEpochMs(d, 0)
		} else {
			player.video.SetEpochMs(d, epochs[d]-now)
		}
	}
	player.clock.SetCurrentTime(0)
	log.Infof("[player] trimmed start, %v", player.video)
}

// RemoveAfterCurrentFrame drops, on every device, the frames after the
// selected one. A device that has not started yet loses all its frames.
func (player *Player) RemoveAfterCurrentFrame() {
	player.lock.Lock()
	defer player.lock.Unlock()

	for d := range player.devices {
		ds := &player.devices[d]
		if ds.frameID < 0 {
			player.video.RemoveAllFrames(d)
			ds.hasAttempted = false
			ds.frame = nil
			continue
		}
		player.video.RemoveFramesAfter(d, ds.frameID)
	}
	player.clock.SetCurrentTime(player.clamp(player.clock.ElapsedMs()))
	log.Infof("[player] trimmed end, %v", player.video)
}

// MergeCameras fuses every device into one. On success every decode is
// forgotten and listeners receive OnInitialized with the new transforms.
func (player *Player) MergeCameras(params video.MergeParams) error {
	player.lock.Lock()
	if params.Workers == 0 {
		params.Workers = player.settings.DecodeWorkers
	}
	err := player.video.MergeAllDevices(player.decoder, player.encoder, player.settings.Generation, params)
	if err != nil {
		player.lock.Unlock()
		return err
	}
	player.resetDevices()
	player.clock.SetCurrentTime(player.clamp(player.clock.ElapsedMs()))
	events := []event{initializedEvent(player.video.Transforms())}
	player.lock.Unlock()

	player.notify(events)
	return nil
}

// RemoveEmptyDevices drops the devices without frames.
func (player *Player) RemoveEmptyDevices() {
	player.lock.Lock()
	before := player.video.NbDevices()
	player.video.KeepOnlyDevices(player.video.NonEmptyDevices())
	if player.video.NbDevices() == before {
		player.lock.Unlock()
		return
	}
	player.resetDevices()
	events := []event{initializedEvent(player.video.Transforms())}
	player.lock.Unlock()

	log.Infof("[player] removed %d empty devices", before-player.Video().NbDevices())
	player.notify(events)
}
