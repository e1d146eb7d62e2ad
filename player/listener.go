package player

import (
	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/utils/uid"
)

// Listener 는 플레이어 이벤트를 받는다. 콜백은 플레이어 락 밖에서 등록 순서대로 호출되므로
// 콜백 안에서 플레이어 메서드를 호출해도 된다.
type Listener interface {
	OnNewFrame(device int, frame *av.DecodedFrame)
	OnStateUpdated(state State)
	OnInitialized(transforms []geo.Mat4)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	NewFrame     func(device int, frame *av.DecodedFrame)
	StateUpdated func(state State)
	Initialized  func(transforms []geo.Mat4)
}

func (l ListenerFuncs) OnNewFrame(device int, frame *av.DecodedFrame) {
	if l.NewFrame != nil {
		l.NewFrame(device, frame)
	}
}

func (l ListenerFuncs) OnStateUpdated(state State) {
	if l.StateUpdated != nil {
		l.StateUpdated(state)
	}
}

func (l ListenerFuncs) OnInitialized(transforms []geo.Mat4) {
	if l.Initialized != nil {
		l.Initialized(transforms)
	}
}

type subscription struct {
	id       string
	listener Listener
}

type event func(Listener)

// Subscribe registers l and returns the id to pass to Unsubscribe.
func (player *Player) Subscribe(l Listener) string {
	id := uid.NewId()
	player.listenersLock.Lock()
	player.listeners = append(player.listeners, subscription{id: id, listener: l})
	player.listenersLock.Unlock()
	return id
}

func (player *Player) Unsubscribe(id string) bool {
	player.listenersLock.Lock()
	defer player.listenersLock.Unlock()
	for i, s := range player.listeners {
		if s.id == id {
			player.listeners = append(player.listeners[:i:i], player.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// notify must be called without holding player.lock.
func (player *Player) notify(events []event) {
	if len(events) == 0 {
		return
	}
	player.listenersLock.Lock()
	listeners := make([]Listener, len(player.listeners))
	for i, s := range player.listeners {
		listeners[i] = s.listener
	}
	player.listenersLock.Unlock()

	for _, e := range events {
		for _, l := range listeners {
			e(l)
		}
	}
}

func newFrameEvent(device int, frame *av.DecodedFrame) event {
	return func(l Listener) { l.OnNewFrame(device, frame) }
}

func stateEvent(state State) event {
	return func(l Listener) { l.OnStateUpdated(state) }
}

func initializedEvent(transforms []geo.Mat4) event {
	return func(l Listener) { l.OnInitialized(transforms) }
}
