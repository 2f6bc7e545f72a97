package domain

import "strconv"

type RoomKind uint8

const (
	// RoomSession holds every viewer of one game.
	RoomSession RoomKind = iota + 1
	// RoomAdmin holds the host page and overlay views of one game.
	RoomAdmin
	// RoomUser holds every socket of one authenticated user.
	RoomUser
)

func (k RoomKind) String() string {
	switch k {
	case RoomSession:
		return "session"
	case RoomAdmin:
		return "admin"
	case RoomUser:
		return "user"
	default:
		return "unknown"
	}
}

// RoomKey identifies a broadcast group. The kind keeps a game called "42"
// and the user with id 42 from ever sharing a room.
type RoomKey struct {
	Kind RoomKind
	ID   string
}

func SessionRoom(game string) RoomKey { return RoomKey{Kind: RoomSession, ID: game} }
func AdminRoom(game string) RoomKey   { return RoomKey{Kind: RoomAdmin, ID: game} }
func UserRoom(id UserID) RoomKey {
	return RoomKey{Kind: RoomUser, ID: strconv.FormatInt(int64(id), 10)}
}

func (k RoomKey) String() string { return k.Kind.String() + ":" + k.ID }

func (k RoomKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// RoomInfo is a read-only view of a room for APIs.
type RoomInfo struct {
	Key         RoomKey `json:"key"`
	MemberCount int     `json:"client_count"`
}
