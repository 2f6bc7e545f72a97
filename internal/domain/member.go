package domain

// Member represents a connected client's identity meta.
// No transport or lifecycle logic here.
type Member struct {
	User *User
	// Host is set for sockets that authenticated with a game token
	// (host page and browser-source overlays).
	Host bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}
