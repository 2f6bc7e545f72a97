package app

import (
	"context"
	"errors"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrHubStopped = errors.New("hub stopped")

// Upstream is told when a game's viewer room gains its first member or
// loses its last one. Implementations must not block.
type Upstream interface {
	Subscribe(game string)
	Unsubscribe(game string)
}

// Broadcaster fans an event out to every member of a room.
type Broadcaster interface {
	Broadcast(key domain.RoomKey, ev core.Event) core.PublishResult
}

// Hub is the relay actor. Connects, joins, leaves, disconnects and
// broadcasts run one at a time on the Run goroutine, so a client sees the
// events of one room in the order they were broadcast.
type Hub struct {
	Registry *Registry
	Rooms    core.RoomManager
	Policy   Policy
	Upstream Upstream

	cmds    chan func()
	stopped chan struct{}
}

func NewHub(rooms core.RoomManager, policy Policy, upstream Upstream) *Hub {
	return &Hub{
		Registry: NewRegistry(),
		Rooms:    rooms,
		Policy:   policy,
		Upstream: upstream,
		cmds:     make(chan func()),
		stopped:  make(chan struct{}),
	}
}

// Run processes commands until ctx is done. It must be called once.
func (h *Hub) Run(ctx context.Context) error {
	log.Info().Str("module", "app.hub").Msg("hub started")
	defer func() {
		close(h.stopped)
		log.Info().Str("module", "app.hub").Msg("hub stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-h.cmds:
			cmd()
		}
	}
}

// exec runs fn on the actor and waits for it.
func (h *Hub) exec(fn func()) error {
	done := make(chan struct{})
	select {
	case h.cmds <- func() { defer close(done); fn() }:
	case <-h.stopped:
		return ErrHubStopped
	}
	<-done
	return nil
}

// Connect registers a client. cancel tears its transport down and is
// called when the policy kicks it.
func (h *Hub) Connect(sess core.MemberSession, cancel context.CancelFunc) error {
	return h.exec(func() { h.Registry.Bind(sess, cancel) })
}

// Join is idempotent. It reports whether sid was newly added.
func (h *Hub) Join(sid core.ClientID, key domain.RoomKey) (added bool, err error) {
	err = h.exec(func() { added = h.join(sid, key) })
	return added, err
}

func (h *Hub) Leave(sid core.ClientID, key domain.RoomKey) (removed bool, err error) {
	err = h.exec(func() { removed = h.leave(sid, key) })
	return removed, err
}

// Disconnect removes sid from every room and forgets it.
func (h *Hub) Disconnect(sid core.ClientID) error {
	return h.exec(func() { h.disconnect(sid) })
}

// Broadcast delivers ev to the members of key without waiting on any
// client's socket. Clients that cannot keep up are handled by the policy.
func (h *Hub) Broadcast(key domain.RoomKey, ev core.Event) core.PublishResult {
	frame, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", string(ev.Type)).Msg("encode event")
		return core.PublishResult{}
	}
	var res core.PublishResult
	if err := h.exec(func() { res = h.broadcast(key, frame) }); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("room", key.String()).Msg("broadcast skipped")
	}
	return res
}

func (h *Hub) MemberCount(key domain.RoomKey) int {
	n := 0
	_ = h.exec(func() {
		if room, ok := h.Rooms.Get(key); ok {
			n = room.MemberCount()
		}
	})
	return n
}

func (h *Hub) RoomsOf(sid core.ClientID) []domain.RoomKey {
	var out []domain.RoomKey
	_ = h.exec(func() { out = h.Registry.RoomsOf(sid) })
	return out
}

func (h *Hub) List() []domain.RoomInfo {
	var out []domain.RoomInfo
	_ = h.exec(func() { out = h.Rooms.List() })
	return out
}

func (h *Hub) join(sid core.ClientID, key domain.RoomKey) bool {
	sess, ok := h.Registry.GetSession(sid)
	if !ok {
		log.Warn().Str("module", "app.hub").Str("sid", string(sid)).Str("room", key.String()).Msg("join from unknown client")
		return false
	}
	room := h.Rooms.GetOrCreate(key)
	if !room.AddMember(sess) {
		return false
	}
	h.Registry.AddRoom(sid, key)
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Str("room", key.String()).Msg("added to room")
	if key.Kind == domain.RoomSession && room.MemberCount() == 1 && h.Upstream != nil {
		h.Upstream.Subscribe(key.ID)
	}
	return true
}

func (h *Hub) leave(sid core.ClientID, key domain.RoomKey) bool {
	room, ok := h.Rooms.Get(key)
	if !ok || !room.RemoveMember(sid) {
		return false
	}
	h.Registry.RemoveRoom(sid, key)
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Str("room", key.String()).Msg("removed from room")
	if room.MemberCount() == 0 {
		h.Rooms.StopRoom(key)
		if key.Kind == domain.RoomSession && h.Upstream != nil {
			h.Upstream.Unsubscribe(key.ID)
		}
	}
	return true
}

func (h *Hub) disconnect(sid core.ClientID) {
	for _, key := range h.Registry.RoomsOf(sid) {
		h.leave(sid, key)
	}
	h.Registry.Unbind(sid)
}

func (h *Hub) broadcast(key domain.RoomKey, frame core.Frame) core.PublishResult {
	room, ok := h.Rooms.Get(key)
	if !ok {
		return core.PublishResult{}
	}
	res := room.Broadcast(frame)
	if h.Policy == nil {
		return res
	}
	for _, slow := range res.Dropped {
		switch h.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.hub").Str("sid", string(slow.ID())).Str("room", key.String()).Msg("kicking slow client")
			h.Registry.Cancel(slow.ID())
			h.disconnect(slow.ID())
		case MarkSlow, DropFrame, NoAction:
		}
	}
	return res
}
