package core

import (
	"github.com/dkeye/StreamBingo/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Key() domain.RoomKey
	MemberCount() int
	Members() []ClientID
	Has(id ClientID) bool

	// AddMember reports whether id was not a member before.
	AddMember(ms MemberSession) bool
	// RemoveMember reports whether id was a member before.
	RemoveMember(id ClientID) bool
	Broadcast(data Frame) PublishResult
}

type RoomManager interface {
	GetOrCreate(key domain.RoomKey) RoomService
	Get(key domain.RoomKey) (RoomService, bool)
	List() []domain.RoomInfo
	StopRoom(key domain.RoomKey)
}
