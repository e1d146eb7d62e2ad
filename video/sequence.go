package video

import (
	"sort"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
)

// Sequence 는 한 장치의 압축 프레임 목록이다. 프레임은 CaptureTimestamp 오름차순,
// IDCapture 는 엄격하게 증가하는 상태를 항상 유지한다.
type Sequence struct {
	Transform geo.Mat4
	frames    []*av.CompressedFrame

	// added to the arrival based epoch, set by Video.SetEpochMs
	epochShiftMs float64
}

func NewSequence() *Sequence {
	return &Sequence{Transform: geo.Identity()}
}

func (seq *Sequence) Len() int {
	return len(seq.frames)
}

func (seq *Sequence) Empty() bool {
	return len(seq.frames) == 0
}

// Frame returns the frame at id, nil when out of range.
func (seq *Sequence) Frame(id int) *av.CompressedFrame {
	if id < 0 || id >= len(seq.frames) {
		return nil
	}
	return seq.frames[id]
}

// Frames exposes the frames. The slice must not be modified.
func (seq *Sequence) Frames() []*av.CompressedFrame {
	return seq.frames
}

func inOrder(prev, next *av.CompressedFrame) bool {
	return next.CaptureTimestamp >= prev.CaptureTimestamp && next.IDCapture > prev.IDCapture
}

// Append adds frame at the end. A frame older than the last one is rejected.
func (seq *Sequence) Append(frame *av.CompressedFrame) error {
	if n := len(seq.frames); n > 0 && !inOrder(seq.frames[n-1], frame) {
		return ErrOutOfOrder
	}
	seq.frames = append(seq.frames, frame)
	return nil
}

// Replace swaps the frame at id, keeping the ordering with its neighbours.
func (seq *Sequence) Replace(id int, frame *av.CompressedFrame) error {
	if id < 0 || id >= len(seq.frames) {
		return ErrInvalidFrame
	}
	if id > 0 && !inOrder(seq.frames[id-1], frame) {
		return ErrOutOfOrder
	}
	if id+1 < len(seq.frames) && !inOrder(frame, seq.frames[id+1]) {
		return ErrOutOfOrder
	}
	seq.frames[id] = frame
	return nil
}

func (seq *Sequence) FirstCaptureTimestamp() int64 {
	if len(seq.frames) == 0 {
		return 0
	}
	return seq.frames[0].CaptureTimestamp
}

func (seq *Sequence) LastCaptureTimestamp() int64 {
	if len(seq.frames) == 0 {
		return 0
	}
	return seq.frames[len(seq.frames)-1].CaptureTimestamp
}

func (seq *Sequence) FirstReceivedTimestamp() int64 {
	if len(seq.frames) == 0 {
		return 0
	}
	return seq.frames[0].ReceivedTimestamp
}

func (seq *Sequence) LastReceivedTimestamp() int64 {
	if len(seq.frames) == 0 {
		return 0
	}
	return seq.frames[len(seq.frames)-1].ReceivedTimestamp
}

func nsToMs(ns int64) float64 {
	return float64(ns) / 1e6
}

func (seq *Sequence) DurationMs() float64 {
	return nsToMs(seq.LastCaptureTimestamp() - seq.FirstCaptureTimestamp())
}

// FrameTimeMs is the time of frame id relative to the first frame.
func (seq *Sequence) FrameTimeMs(id int) float64 {
	if id < 0 || id >= len(seq.frames) {
		return 0
	}
	return nsToMs(seq.frames[id].CaptureTimestamp - seq.frames[0].CaptureTimestamp)
}

// ClosestFrameID returns the frame nearest to localMs, a time relative to the
// first frame. Ties go to the earlier frame. Returns false when the sequence
// is empty or localMs is before the first frame.
func (seq *Sequence) ClosestFrameID(localMs float64) (int, bool) {
	n := len(seq.frames)
	if n == 0 || localMs < 0 {
		return 0, false
	}
	// 첫번째로 localMs 보다 늦은 프레임
	after := sort.Search(n, func(i int) bool {
		return seq.FrameTimeMs(i) > localMs
	})
	id := after - 1
	if after < n && seq.FrameTimeMs(after)-localMs < localMs-seq.FrameTimeMs(id) {
		id = after
	}
	return id, true
}

// RemoveUntil drops every frame before id.
func (seq *Sequence) RemoveUntil(id int) {
	if id <= 0 {
		return
	}
	if id > len(seq.frames) {
		id = len(seq.frames)
	}
	rest := make([]*av.CompressedFrame, len(seq.frames)-id)
	copy(rest, seq.frames[id:])
	seq.frames = rest
}

// RemoveAfter keeps frames 0..id.
func (seq *Sequence) RemoveAfter(id int) {
	if id < 0 || id+1 >= len(seq.frames) {
		return
	}
	for i := id + 1; i < len(seq.frames); i++ {
		seq.frames[i] = nil
	}
	seq.frames = seq.frames[:id+1]
}

func (seq *Sequence) Clear() {
	seq.frames = nil
	seq.epochShiftMs = 0
}

func (seq *Sequence) ValidVerticesCount(id int) uint32 {
	if f := seq.Frame(id); f != nil {
		return f.ValidVerticesCount
	}
	return 0
}

// Clone copies the frame list. Frames are immutable and shared.
func (seq *Sequence) Clone() *Sequence {
	c := &Sequence{Transform: seq.Transform, epochShiftMs: seq.epochShiftMs}
	if len(seq.frames) > 0 {
		c.frames = make([]*av.CompressedFrame, len(seq.frames))
		copy(c.frames, seq.frames)
	}
	return c
}
