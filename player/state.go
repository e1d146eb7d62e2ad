package player

import "fmt"

type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Paused
)

func (s PlayState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// State is the snapshot handed to listeners after every Update.
type State struct {
	PlayState     PlayState
	CurrentTimeMs float64
	StartTimeMs   float64
	EndTimeMs     float64
	DurationMs    float64
	Looping       bool
	// FrameIDs holds the selected frame per device, -1 when none.
	FrameIDs []int
}

func (s State) String() string {
	return fmt.Sprintf("<%v, time: %.1f/%.1f, frames: %v>", s.PlayState, s.CurrentTimeMs, s.DurationMs, s.FrameIDs)
}
