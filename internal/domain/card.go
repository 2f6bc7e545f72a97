package domain

import (
	"slices"
	"time"
)

type CardID int64

const (
	GridSize = 25
	// FreeCell is the centre index; its grid value is always Free.
	FreeCell = 12
	// Free is the grid sentinel of the free cell.
	Free = 0
)

// Card is a player's 5x5 grid in row-major order.
type Card struct {
	ID       CardID        `json:"id"`
	UserID   UserID        `json:"userId"`
	GameID   GameID        `json:"gameId"`
	GameName string        `json:"gameName"`
	Grid     [GridSize]int `json:"grid"`
	Marked   []int         `json:"marked"`
	Created  time.Time     `json:"created"`
	Updated  time.Time     `json:"updated"`
}

func (c *Card) Clone() *Card {
	cp := *c
	cp.Marked = slices.Clone(c.Marked)
	return &cp
}
