package core

import "github.com/dkeye/StreamBingo/internal/domain"

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	id   ClientID
	meta *domain.Member
	conn SignalConnection
}

func NewMemberSession(id ClientID, meta *domain.Member, conn SignalConnection) MemberSession {
	if meta == nil {
		meta = &domain.Member{}
	}
	return &memberSession{id: id, meta: meta, conn: conn}
}

func (m *memberSession) ID() ClientID             { return m.id }
func (m *memberSession) Meta() *domain.Member     { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }
