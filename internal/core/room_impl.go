package core

import (
	"sort"
	"sync"

	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	key  domain.RoomKey
	mu   sync.RWMutex
	byID map[ClientID]MemberSession
}

func NewRoomService(key domain.RoomKey) RoomService {
	return &roomImpl{
		key:  key,
		byID: make(map[ClientID]MemberSession),
	}
}

func (r *roomImpl) Key() domain.RoomKey { return r.key }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *roomImpl) Has(id ClientID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

func (r *roomImpl) AddMember(ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ms.ID()]; ok {
		return false
	}
	r.byID[ms.ID()] = ms
	log.Debug().Str("module", "core.room").Str("room", r.key.String()).Str("sid", string(ms.ID())).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(id ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	log.Debug().Str("module", "core.room").Str("room", r.key.String()).Str("sid", string(id)).Msg("member removed")
	return true
}

func (r *roomImpl) Broadcast(data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for _, m := range r.byID {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", r.key.String()).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) Members() []ClientID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientID, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
