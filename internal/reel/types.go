// Package reel composes the deterministic 30-cell visual reel for a round slot.
package reel

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// Length is the number of cells in every reel.
	Length = 30
	// PinnedIndex always holds the authoritative outcome.
	PinnedIndex = 24
	// TotalTickets is the conventional sum of catalog weights.
	TotalTickets = 100000
)

var (
	ErrEmptyCatalog   = errors.New("catalog is empty")
	ErrInvalidWeight  = errors.New("catalog weight must be >= 0")
	ErrMissingOutcome = errors.New("outcome item is required")
)

// Item is a catalog entry as shown to players.
type Item struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Image string          `json:"image,omitempty"`
}

// CatalogEntry pairs an item with its ticket weight out of TotalTickets.
type CatalogEntry struct {
	Item   Item `json:"item"`
	Weight int  `json:"weight"`
}

// Slot is one reel cell. Item holds the real item even when Symbol hides it.
type Slot struct {
	Symbol          Symbol `json:"symbol"`
	Item            *Item  `json:"item,omitempty"`
	TicketWeight    int    `json:"ticket_weight"`
	IsSpecial       bool   `json:"is_special"`
	IsAuthoritative bool   `json:"is_authoritative"`
}

// Reel is the fixed-length cell sequence scrolled past the selector.
type Reel struct {
	Key   string       `json:"key"`
	Slots [Length]Slot `json:"slots"`
}

// Pinned returns the authoritative outcome slot.
func (r Reel) Pinned() Slot {
	return r.Slots[PinnedIndex]
}

// Reveal returns the real outcome item, including one hidden behind a
// big-spin placeholder.
func (r Reel) Reveal() Item {
	if it := r.Slots[PinnedIndex].Item; it != nil {
		return *it
	}
	return Item{}
}

// TargetOffset is the cell-aligned resting offset that centers the pinned
// index under a selector in the middle of the viewport. Offsets are negative
// because the reel scrolls upward.
func (r Reel) TargetOffset(cellHeight, viewportHeight float64) float64 {
	return PinnedOffset(cellHeight, viewportHeight)
}

// PinnedOffset is TargetOffset without a composed reel.
func PinnedOffset(cellHeight, viewportHeight float64) float64 {
	if cellHeight <= 0 {
		return 0
	}
	half := int(viewportHeight / (2 * cellHeight))
	cells := PinnedIndex - half
	if cells < 0 {
		cells = 0
	}
	return -float64(cells) * cellHeight
}
