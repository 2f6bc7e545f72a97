package postgres

import (
	"time"

	"github.com/dkeye/StreamBingo/internal/domain"
	"gorm.io/datatypes"
)

type gameRow struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex;size:64;not null"`
	OwnerID      int64  `gorm:"index"`
	Token        string `gorm:"uniqueIndex;size:36;not null"`
	Mode         string `gorm:"size:16;not null"`
	Called       datatypes.JSONSlice[int]
	Ended        bool
	WinnerCardID *int64
	WinnerName   *string `gorm:"size:64"`
	Settings     datatypes.JSONType[domain.Settings]
	Updated      time.Time
}

func (gameRow) TableName() string { return "games" }

type cardRow struct {
	ID       int64  `gorm:"primaryKey"`
	UserID   int64  `gorm:"uniqueIndex:idx_cards_user_game;not null"`
	GameID   int64  `gorm:"uniqueIndex:idx_cards_user_game;index;not null"`
	GameName string `gorm:"size:64;not null"`
	Grid     datatypes.JSONSlice[int]
	Marked   datatypes.JSONSlice[int]
	Created  time.Time
	Updated  time.Time
}

func (cardRow) TableName() string { return "cards" }

type userRow struct {
	ID       int64  `gorm:"primaryKey"`
	TwitchID int64  `gorm:"uniqueIndex;not null"`
	Name     string `gorm:"size:36;not null"`
	Token    string `gorm:"uniqueIndex;size:36;not null"`
	Host     bool
}

func (userRow) TableName() string { return "users" }

type statRow struct {
	ID       int64  `gorm:"primaryKey"`
	UserID   int64  `gorm:"index"`
	GameName string `gorm:"size:64;index"`
	Players  int
	Grid     datatypes.JSONSlice[int]
	Marked   datatypes.JSONSlice[int]
	Called   datatypes.JSONSlice[int]
	Created  time.Time
}

func (statRow) TableName() string { return "stats" }

// Models lists every table, in creation order.
func Models() []any {
	return []any{&userRow{}, &gameRow{}, &cardRow{}, &statRow{}}
}

func gameToRow(g *domain.Game) gameRow {
	r := gameRow{
		ID:         int64(g.ID),
		Name:       g.Name,
		OwnerID:    int64(g.OwnerID),
		Token:      g.Token,
		Mode:       string(g.Mode),
		Called:     datatypes.JSONSlice[int](nonNil(g.Called)),
		Ended:      g.Ended,
		WinnerName: g.WinnerName,
		Settings:   datatypes.NewJSONType(g.Settings),
		Updated:    g.Updated,
	}
	if g.WinnerCardID != nil {
		id := int64(*g.WinnerCardID)
		r.WinnerCardID = &id
	}
	return r
}

func (r gameRow) toDomain() *domain.Game {
	g := &domain.Game{
		ID:         domain.GameID(r.ID),
		Name:       r.Name,
		OwnerID:    domain.UserID(r.OwnerID),
		Token:      r.Token,
		Mode:       domain.Mode(r.Mode),
		Called:     append([]int{}, r.Called...),
		Ended:      r.Ended,
		WinnerName: r.WinnerName,
		Settings:   r.Settings.Data(),
		Updated:    r.Updated,
	}
	if r.WinnerCardID != nil {
		id := domain.CardID(*r.WinnerCardID)
		g.WinnerCardID = &id
	}
	return g
}

func cardToRow(c *domain.Card) cardRow {
	return cardRow{
		ID:       int64(c.ID),
		UserID:   int64(c.UserID),
		GameID:   int64(c.GameID),
		GameName: c.GameName,
		Grid:     datatypes.JSONSlice[int](c.Grid[:]),
		Marked:   datatypes.JSONSlice[int](nonNil(c.Marked)),
		Created:  c.Created,
		Updated:  c.Updated,
	}
}

func (r cardRow) toDomain() *domain.Card {
	c := &domain.Card{
		ID:       domain.CardID(r.ID),
		UserID:   domain.UserID(r.UserID),
		GameID:   domain.GameID(r.GameID),
		GameName: r.GameName,
		Marked:   append([]int{}, r.Marked...),
		Created:  r.Created,
		Updated:  r.Updated,
	}
	copy(c.Grid[:], r.Grid)
	return c
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:       domain.UserID(r.ID),
		TwitchID: r.TwitchID,
		Name:     r.Name,
		Token:    r.Token,
		Host:     r.Host,
	}
}

func statToRow(s *domain.StatRecord) statRow {
	return statRow{
		UserID:   int64(s.UserID),
		GameName: s.GameName,
		Players:  s.Players,
		Grid:     datatypes.JSONSlice[int](append([]int(nil), s.Grid[:]...)),
		Marked:   datatypes.JSONSlice[int](nonNil(s.Marked)),
		Called:   datatypes.JSONSlice[int](nonNil(s.Called)),
		Created:  s.Created,
	}
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return append([]int(nil), v...)
}
