package reel

import "github.com/shopspring/decimal"

// DefaultRareMultiplier classifies an item as rare when its value is at least
// this multiple of the base stake.
var DefaultRareMultiplier = decimal.RequireFromString("2.4")

// SymbolKind tags what a reel cell shows.
type SymbolKind string

const (
	KindStandard SymbolKind = "standard"
	KindRare     SymbolKind = "rare"
	KindDecoy    SymbolKind = "decoy"
)

// Symbol is the visible face of a reel cell: Standard(item), Rare(item) or Decoy.
type Symbol struct {
	Kind SymbolKind `json:"kind"`
	Item *Item      `json:"item,omitempty"`
}

func Standard(item Item) Symbol { return Symbol{Kind: KindStandard, Item: &item} }
func Rare(item Item) Symbol     { return Symbol{Kind: KindRare, Item: &item} }
func Decoy() Symbol             { return Symbol{Kind: KindDecoy} }

// Classifier decides rarity once per item instead of at render time.
type Classifier struct {
	BaseStake  decimal.Decimal
	Multiplier decimal.Decimal
}

// NewClassifier uses DefaultRareMultiplier.
func NewClassifier(baseStake decimal.Decimal) Classifier {
	return Classifier{BaseStake: baseStake, Multiplier: DefaultRareMultiplier}
}

// IsRare reports value >= multiplier * base stake. Without a positive base
// stake nothing is rare.
func (c Classifier) IsRare(item Item) bool {
	if !c.BaseStake.IsPositive() {
		return false
	}
	mult := c.Multiplier
	if mult.IsZero() {
		mult = DefaultRareMultiplier
	}
	return item.Value.GreaterThanOrEqual(c.BaseStake.Mul(mult))
}

// Classify returns the symbol an item is drawn with.
func (c Classifier) Classify(item Item) Symbol {
	if c.IsRare(item) {
		return Rare(item)
	}
	return Standard(item)
}
