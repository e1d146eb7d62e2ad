// Package player plays a multi-device video back on a wall clock: every
// Update maps the current time to one frame per device and decodes the
// frames that changed since the previous Update.
package player

import (
	"fmt"
	"sync"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/utils/parallel"
	"github.com/toolset/dcplayer/video"
)

// deviceState 는 장치별로 선택된 프레임과 마지막 디코딩 결과를 기억한다.
// attempted 는 성공 여부와 관계없이 마지막으로 디코딩을 시도한 프레임의 IDCapture 이다.
type deviceState struct {
	frameID      int
	hasAttempted bool
	attempted    uint64
	frame        *av.DecodedFrame
}

func newDeviceStates(n int) []deviceState {
	states := make([]deviceState, n)
	for i := range states {
		states[i].frameID = -1
	}
	return states
}

// Player is safe for concurrent use. A single lock serializes Update and the
// editing operations, listeners are called after it is released.
type Player struct {
	lock     sync.Mutex
	video    *video.Video
	decoder  av.Decoder
	encoder  av.Encoder
	settings Settings
	clock    *av.Clock
	state    PlayState
	devices  []deviceState
	frames   *cache.Cache // decoded frames, nil when disabled

	listenersLock sync.Mutex
	listeners     []subscription
}

// New builds a player with an empty video. The encoder is only needed by
// MergeCameras.
func New(dec av.Decoder, enc av.Encoder, settings Settings) *Player {
	return NewWithClock(dec, enc, settings, av.NewClock())
}

func NewWithClock(dec av.Decoder, enc av.Encoder, settings Settings, clock *av.Clock) *Player {
	player := &Player{
		video:   video.New(0),
		decoder: dec,
		encoder: enc,
		clock:   clock,
	}
	player.applySettings(settings)
	return player
}

func (player *Player) applySettings(settings Settings) {
	if settings.FrameCacheTTL != player.settings.FrameCacheTTL {
		if settings.FrameCacheTTL > 0 {
			player.frames = cache.New(settings.FrameCacheTTL, 2*settings.FrameCacheTTL)
		} else {
			player.frames = nil
		}
	}
	player.settings = settings
}

// SetVideo replaces the played video and rewinds to the start.
func (player *Player) SetVideo(v *video.Video) {
	player.lock.Lock()
	player.video = v
	player.resetDevices()
	player.state = Stopped
	player.clock.Reset()
	events := []event{initializedEvent(v.Transforms())}
	player.lock.Unlock()

	log.Debugf("[player] new video %v", v)
	player.notify(events)
}

func (player *Player) LoadFromFile(path string) error {
	v, err := video.Load(path)
	if err != nil {
		return err
	}
	player.SetVideo(v)
	return nil
}

func (player *Player) SaveToFile(path string) error {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.video.SaveToFile(path)
}

// Video returns the played video. It must not be modified while the player
// is in use.
func (player *Player) Video() *video.Video {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.video
}

func (player *Player) Settings() Settings {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.settings
}

// UpdateSettings applies s. Frames are decoded again on the next Update
// when the generation settings changed.
func (player *Player) UpdateSettings(s Settings) {
	player.lock.Lock()
	defer player.lock.Unlock()
	if s.Generation != player.settings.Generation {
		player.invalidateDecodes()
	}
	player.applySettings(s)
	player.clock.SetCurrentTime(player.clamp(player.clock.ElapsedMs()))
}

// resetDevices forgets every selection and decode, the device count may have changed.
func (player *Player) resetDevices() {
	player.devices = newDeviceStates(player.video.NbDevices())
	if player.frames != nil {
		player.frames.Flush()
	}
}

func (player *Player) invalidateDecodes() {
	for i := range player.devices {
		player.devices[i].hasAttempted = false
		player.devices[i].frame = nil
	}
	if player.frames != nil {
		player.frames.Flush()
	}
}

func (player *Player) durationMs() float64 {
	return player.video.DurationMs()
}

func (player *Player) startTimeMs() float64 {
	start := player.settings.StartTimeMs
	if start < 0 {
		return 0
	}
	if d := player.durationMs(); start > d {
		return d
	}
	return start
}

func (player *Player) endTimeMs() float64 {
	d := player.durationMs()
	end := player.settings.EndTimeMs
	if end <= 0 || end > d {
		end = d
	}
	if start := player.startTimeMs(); end < start {
		end = start
	}
	return end
}

func (player *Player) clamp(ms float64) float64 {
	if start := player.startTimeMs(); ms < start {
		return start
	}
	if end := player.endTimeMs(); ms > end {
		return end
	}
	return ms
}

func (player *Player) Start() {
	player.lock.Lock()
	defer player.lock.Unlock()
	switch player.state {
	case Playing:
		return
	case Stopped:
		if player.settings.StartTimeMs > 0 || player.clock.ElapsedMs() < player.startTimeMs() {
			player.clock.SetCurrentTime(player.startTimeMs())
		}
	}
	player.clock.Start()
	player.state = Playing
}

// Stop pauses a playing player.
func (player *Player) Stop() {
	player.lock.Lock()
	defer player.lock.Unlock()
	if player.state != Playing {
		return
	}
	player.clock.Stop()
	player.state = Paused
}

// Reset stops the player and rewinds the clock to 0.
func (player *Player) Reset() {
	player.lock.Lock()
	defer player.lock.Unlock()
	player.clock.Reset()
	player.state = Stopped
}

// Restart moves back to the start time without changing the play state.
func (player *Player) Restart() {
	player.lock.Lock()
	defer player.lock.Unlock()
	player.clock.SetCurrentTime(player.startTimeMs())
}

func (player *Player) GoToStartTime() {
	player.Restart()
}

func (player *Player) GoToEndTime() {
	player.lock.Lock()
	defer player.lock.Unlock()
	player.clock.SetCurrentTime(player.endTimeMs())
}

// SetCurrentTime seeks to ms, clamped to [start, end].
func (player *Player) SetCurrentTime(ms float64) {
	player.lock.Lock()
	defer player.lock.Unlock()
	player.clock.SetCurrentTime(player.clamp(ms))
}

func (player *Player) PlayState() PlayState {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.state
}

func (player *Player) IsPlaying() bool {
	return player.PlayState() == Playing
}

func (player *Player) IsLooping() bool {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.settings.Loop
}

func (player *Player) CurrentTimeMs() float64 {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.clock.ElapsedMs()
}

func (player *Player) DurationMs() float64 {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.durationMs()
}

func (player *Player) StartTimeMs() float64 {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.startTimeMs()
}

func (player *Player) EndTimeMs() float64 {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.endTimeMs()
}

func (player *Player) snapshot() State {
	ids := make([]int, len(player.devices))
	for i, d := range player.devices {
		ids[i] = d.frameID
	}
	return State{
		PlayState:     player.state,
		CurrentTimeMs: player.clock.ElapsedMs(),
		StartTimeMs:   player.startTimeMs(),
		EndTimeMs:     player.endTimeMs(),
		DurationMs:    player.durationMs(),
		Looping:       player.settings.Loop,
		FrameIDs:      ids,
	}
}

func (player *Player) State() State {
	player.lock.Lock()
	defer player.lock.Unlock()
	return player.snapshot()
}

type decodeJob struct {
	device int
	frame  *av.CompressedFrame
	result *av.DecodedFrame
	err    error
}

func cacheKey(device int, id uint64) string {
	return fmt.Sprintf("%d/%d", device, id)
}

// Update advances playback by one tick: it resolves the frame of every
// device at the current time, decodes the frames that changed and notifies
// the listeners.
func (player *Player) Update() {
	player.lock.Lock()
	events := player.update()
	player.lock.Unlock()

	player.notify(events)
}

func (player *Player) update() []event {
	// 1. 현재 시간을 읽고 끝을 넘었으면 반복하거나 멈춘다.
	elapsed := player.clock.ElapsedMs()
	start, end := player.startTimeMs(), player.endTimeMs()
	if elapsed > end {
		if player.settings.Loop {
			elapsed = start
		} else {
			elapsed = end
			player.clock.Stop()
			if player.state == Playing {
				player.state = Paused
			}
		}
		player.clock.SetCurrentTime(elapsed)
	}

	// 2. 장치별 프레임 선택
	var jobs []*decodeJob
	for d := range player.devices {
		ds := &player.devices[d]
		id, ok := player.video.ClosestFrameIDFromTime(d, elapsed)
		if !ok {
			ds.frameID = -1
			continue
		}
		ds.frameID = id
		f := player.video.Frame(d, id)
		if ds.hasAttempted && ds.attempted == f.IDCapture {
			continue
		}
		ds.hasAttempted = true
		ds.attempted = f.IDCapture
		jobs = append(jobs, &decodeJob{device: d, frame: f})
	}

	// 3. 바뀐 프레임만 병렬로 디코딩한다. 모든 장치가 끝날 때까지 기다린다.
	settings := player.settings.Generation
	frames := player.frames
	parallel.ForEach(len(jobs), player.settings.DecodeWorkers, func(i int) {
		job := jobs[i]
		key := cacheKey(job.device, job.frame.IDCapture)
		if frames != nil {
			if cached, found := frames.Get(key); found {
				job.result = cached.(*av.DecodedFrame)
				return
			}
		}
		job.result, job.err = player.decoder.Decode(settings, job.frame)
		if job.err == nil && frames != nil {
			frames.SetDefault(key, job.result)
		}
	})

	// 4. 장치 순서대로 알림
	events := make([]event, 0, len(jobs)+1)
	for _, job := range jobs {
		ds := &player.devices[job.device]
		if job.err != nil {
			log.WithFields(log.Fields{
				"device":     job.device,
				"id_capture": job.frame.IDCapture,
			}).Warningf("[player] decode failed: %v", job.err)
			continue
		}
		ds.frame = job.result
		events = append(events, newFrameEvent(job.device, job.result))
	}

	// 5. 상태 알림
	state := player.snapshot()
	events = append(events, stateEvent(state))
	if len(jobs) > 0 {
		log.Debugf("[player] update %v, %d decodes", state, len(jobs))
	}
	return events
}

// CurrentFrameID returns the frame selected for device d by the last Update, -1 when none.
func (player *Player) CurrentFrameID(d int) int {
	player.lock.Lock()
	defer player.lock.Unlock()
	if d < 0 || d >= len(player.devices) {
		return -1
	}
	return player.devices[d].frameID
}

// CurrentFrame returns the last decoded frame of device d, nil when none.
func (player *Player) CurrentFrame(d int) *av.DecodedFrame {
	player.lock.Lock()
	defer player.lock.Unlock()
	if d < 0 || d >= len(player.devices) {
		return nil
	}
	return player.devices[d].frame
}

func (player *Player) currentCompressedFrame(d int) *av.CompressedFrame {
	if d < 0 || d >= len(player.devices) || player.devices[d].frameID < 0 {
		return nil
	}
	return player.video.Frame(d, player.devices[d].frameID)
}

// CurrentCompressedFrameCloudSize is the vertex count recorded in the selected frame of device d.
func (player *Player) CurrentCompressedFrameCloudSize(d int) int {
	player.lock.Lock()
	defer player.lock.Unlock()
	if f := player.currentCompressedFrame(d); f != nil {
		return int(f.ValidVerticesCount)
	}
	return 0
}

// CurrentFrameCloudSize is the vertex count of the decoded cloud of device d.
func (player *Player) CurrentFrameCloudSize(d int) int {
	player.lock.Lock()
	defer player.lock.Unlock()
	if d < 0 || d >= len(player.devices) {
		return 0
	}
	return player.devices[d].frame.CloudSize()
}

func (player *Player) CurrentFramesTotalCloudSize() int {
	player.lock.Lock()
	defer player.lock.Unlock()
	n := 0
	for d := range player.devices {
		if f := player.currentCompressedFrame(d); f != nil {
			n += int(f.ValidVerticesCount)
		}
	}
	return n
}

func (player *Player) copyCurrentCloud(d int, dst *geo.ColoredCloud, applyTransform bool) int {
	f := player.devices[d].frame
	if f.CloudSize() == 0 {
		return 0
	}
	cloud := &f.Cloud
	if applyTransform {
		if m := player.video.Transform(d); !m.IsIdentity() {
			transformed := cloud.Transformed(m)
			cloud = &transformed
		}
	}
	hasColors := cloud.HasColors()
	for i, v := range cloud.Vertices {
		var c geo.Vec3
		if hasColors {
			c = cloud.Colors[i]
		}
		dst.Append(v, c)
	}
	return cloud.Len()
}

// CopyCurrentCloud appends the decoded cloud of device d to dst and returns
// the number of points added.
func (player *Player) CopyCurrentCloud(d int, dst *geo.ColoredCloud, applyTransform bool) int {
	player.lock.Lock()
	defer player.lock.Unlock()
	if d < 0 || d >= len(player.devices) {
		return 0
	}
	return player.copyCurrentCloud(d, dst, applyTransform)
}

func (player *Player) CopyAllCurrentClouds(dst *geo.ColoredCloud, applyTransform bool) int {
	player.lock.Lock()
	defer player.lock.Unlock()
	n := 0
	for d := range player.devices {
		n += player.copyCurrentCloud(d, dst, applyTransform)
	}
	return n
}
