package core

import "github.com/dkeye/StreamBingo/internal/domain"

// ClientID identifies one socket for its whole lifetime.
type ClientID string

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() ClientID
	Meta() *domain.Member
	Signal() SignalConnection
}
