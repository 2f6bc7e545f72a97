package core

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/dkeye/StreamBingo/internal/domain"
)

const (
	columns     = 5
	columnRange = 15
)

// linePatterns are the FreeLine wins: two diagonals, five columns, five
// rows. The centre column and centre row skip the free cell.
var linePatterns = [][]int{
	{0, 6, 18, 24},
	{20, 16, 8, 4},
	{0, 5, 10, 15, 20},
	{1, 6, 11, 16, 21},
	{2, 7, 17, 22},
	{3, 8, 13, 18, 23},
	{4, 9, 14, 19, 24},
	{0, 1, 2, 3, 4},
	{5, 6, 7, 8, 9},
	{10, 11, 13, 14},
	{15, 16, 17, 18, 19},
	{20, 21, 22, 23, 24},
}

var fillPattern = func() []int {
	p := make([]int, 0, domain.GridSize-1)
	for i := 0; i < domain.GridSize; i++ {
		if i != domain.FreeCell {
			p = append(p, i)
		}
	}
	return p
}()

// Patterns returns the win patterns of mode. Callers must not modify them.
func Patterns(mode domain.Mode) [][]int {
	switch mode {
	case domain.ModeFreeFill, domain.ModeBlackout:
		return [][]int{fillPattern}
	default:
		return linePatterns
	}
}

// CardEngine generates cards and evaluates them. It holds no card state.
type CardEngine struct {
	intn func(n int) int
}

func NewCardEngine() *CardEngine {
	return &CardEngine{intn: rand.IntN}
}

// NewCardEngineWithRand uses intn, which must return a value in [0, n).
func NewCardEngineWithRand(intn func(n int) int) *CardEngine {
	return &CardEngine{intn: intn}
}

// Generate fills each column with 5 distinct numbers from its range.
// Grids are identical for every mode.
func (e *CardEngine) Generate(_ domain.Mode) *domain.Card {
	c := &domain.Card{Marked: []int{}}
	for col := 0; col < columns; col++ {
		pool := make([]int, columnRange)
		for i := range pool {
			pool[i] = col*columnRange + i + 1
		}
		// partial Fisher-Yates: the first five slots end up a uniform sample
		for row := 0; row < columns; row++ {
			j := row + e.intn(columnRange-row)
			pool[row], pool[j] = pool[j], pool[row]
			c.Grid[row*columns+col] = pool[row]
		}
	}
	c.Grid[domain.FreeCell] = domain.Free
	return c
}

func checkCell(i int) error {
	if i < 0 || i >= domain.GridSize || i == domain.FreeCell {
		return fmt.Errorf("cell %d: %w", i, domain.ErrInvalidCell)
	}
	return nil
}

// normalize keeps Marked sorted and free of duplicates.
func normalize(c *domain.Card) {
	if !slices.IsSorted(c.Marked) {
		slices.Sort(c.Marked)
	}
	c.Marked = slices.Compact(c.Marked)
}

func (e *CardEngine) Mark(c *domain.Card, i int) error {
	if err := checkCell(i); err != nil {
		return err
	}
	normalize(c)
	pos, found := slices.BinarySearch(c.Marked, i)
	if !found {
		c.Marked = slices.Insert(c.Marked, pos, i)
	}
	return nil
}

func (e *CardEngine) Unmark(c *domain.Card, i int) error {
	if err := checkCell(i); err != nil {
		return err
	}
	normalize(c)
	if pos, found := slices.BinarySearch(c.Marked, i); found {
		c.Marked = slices.Delete(c.Marked, pos, pos+1)
	}
	return nil
}

// IsMarked reads c without normalizing it.
func (e *CardEngine) IsMarked(c *domain.Card, i int) (bool, error) {
	if err := checkCell(i); err != nil {
		return false, err
	}
	return slices.Contains(c.Marked, i), nil
}

// Evaluate checks c against the FreeLine patterns.
func (e *CardEngine) Evaluate(c *domain.Card, called []int) bool {
	return e.EvaluateMode(c, called, domain.ModeFreeLine)
}

// EvaluateMode reports whether some pattern of mode has every cell marked
// and called. It does not modify c.
func (e *CardEngine) EvaluateMode(c *domain.Card, called []int, mode domain.Mode) bool {
	calledSet := make(map[int]struct{}, len(called))
	for _, n := range called {
		calledSet[n] = struct{}{}
	}
	marked := make(map[int]struct{}, len(c.Marked))
	for _, i := range c.Marked {
		marked[i] = struct{}{}
	}
	satisfied := func(i int) bool {
		if i == domain.FreeCell {
			return true
		}
		if _, ok := marked[i]; !ok {
			return false
		}
		_, ok := calledSet[c.Grid[i]]
		return ok
	}
	for _, p := range Patterns(mode) {
		win := true
		for _, i := range p {
			if !satisfied(i) {
				win = false
				break
			}
		}
		if win {
			return true
		}
	}
	return false
}
