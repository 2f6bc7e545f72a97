package domain

import "time"

// StatRecord is written once per win.
type StatRecord struct {
	ID       int64         `json:"id"`
	UserID   UserID        `json:"userId"`
	GameName string        `json:"gameName"`
	Players  int           `json:"players"`
	Grid     [GridSize]int `json:"grid"`
	Marked   []int         `json:"marked"`
	Called   []int         `json:"called"`
	Created  time.Time     `json:"created"`
}
