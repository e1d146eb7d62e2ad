package player

import (
	"fmt"
	"time"

	"github.com/toolset/dcplayer/av"
)

// Settings 는 재생 구간, 반복 여부, 디코딩 옵션을 담는다.
type Settings struct {
	Loop bool
	// StartTimeMs and EndTimeMs bound playback on the global timeline.
	// EndTimeMs <= 0 means the end of the video.
	StartTimeMs float64
	EndTimeMs   float64
	Generation  av.GenerationSettings
	// DecodeWorkers bounds parallel decoding, <= 0 means one per cpu.
	DecodeWorkers int
	// FrameCacheTTL keeps decoded frames around for revisits, 0 disables it.
	FrameCacheTTL time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Loop:       true,
		Generation: av.DefaultGenerationSettings(),
	}
}

func (s Settings) String() string {
	return fmt.Sprintf("<loop: %v, start: %g, end: %g, workers: %d, cache: %v, generation: %v>",
		s.Loop, s.StartTimeMs, s.EndTimeMs, s.DecodeWorkers, s.FrameCacheTTL, s.Generation)
}
