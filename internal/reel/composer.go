package reel

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-reel-engine/internal/engine"
)

// DefaultDecoyChance is the per-cell decoy draw probability in big-spin mode.
const DefaultDecoyChance = 0.05

// Request carries everything needed to compose one reel.
type Request struct {
	Key       engine.RoundSeedKey
	Catalog   []CatalogEntry
	Outcome   Item
	BigSpin   bool
	BaseStake decimal.Decimal
}

// Composer builds reels. The zero value is not usable; use NewComposer.
type Composer struct {
	rareMultiplier decimal.Decimal
	decoyChance    float64
}

// NewComposer returns a composer with the default rarity multiplier and decoy chance.
func NewComposer() *Composer {
	return &Composer{
		rareMultiplier: DefaultRareMultiplier,
		decoyChance:    DefaultDecoyChance,
	}
}

// Compose is a pure function of its request: identical inputs give identical reels.
//
// Off the pinned index the copy-expansion sampler is only proportional, which is
// fine because those cells never pay out.
func (c *Composer) Compose(req Request) (Reel, error) {
	stream, err := req.Key.Stream()
	if err != nil {
		return Reel{}, err
	}
	if len(req.Catalog) == 0 {
		return Reel{}, ErrEmptyCatalog
	}
	if strings.TrimSpace(req.Outcome.ID) == "" {
		return Reel{}, ErrMissingOutcome
	}
	for _, e := range req.Catalog {
		if e.Weight < 0 {
			return Reel{}, fmt.Errorf("%w: item %q has weight %d", ErrInvalidWeight, e.Item.ID, e.Weight)
		}
	}

	classifier := Classifier{BaseStake: req.BaseStake, Multiplier: c.rareMultiplier}
	pool := expandPool(req.Catalog, func(e CatalogEntry) bool {
		return !req.BigSpin || !classifier.IsRare(e.Item)
	})

	r := Reel{Key: req.Key.String()}
	for i := 0; i < Length; i++ {
		if i == PinnedIndex {
			r.Slots[i] = c.pinnedSlot(req, classifier)
			continue
		}

		if req.BigSpin && stream.Float() < c.decoyChance {
			r.Slots[i] = Slot{Symbol: Decoy()}
			continue
		}

		var entry CatalogEntry
		if len(pool) > 0 {
			entry = pool[stream.Intn(len(pool))]
		} else {
			entry = req.Catalog[stream.Intn(len(req.Catalog))]
		}
		item := entry.Item
		r.Slots[i] = Slot{
			Symbol:       classifier.Classify(item),
			Item:         &item,
			TicketWeight: entry.Weight,
		}
	}

	return r, nil
}

func (c *Composer) pinnedSlot(req Request, classifier Classifier) Slot {
	item := req.Outcome
	slot := Slot{
		Symbol:          classifier.Classify(item),
		Item:            &item,
		TicketWeight:    weightOf(req.Catalog, item.ID),
		IsAuthoritative: true,
	}
	if req.BigSpin && classifier.IsRare(item) {
		slot.Symbol = Decoy()
		slot.IsSpecial = true
	}
	return slot
}

// expandPool repeats each kept entry floor(weight/TotalTickets*Length) times.
func expandPool(catalog []CatalogEntry, keep func(CatalogEntry) bool) []CatalogEntry {
	var pool []CatalogEntry
	for _, e := range catalog {
		if !keep(e) {
			continue
		}
		copies := int(math.Floor(float64(e.Weight) / TotalTickets * Length))
		for j := 0; j < copies; j++ {
			pool = append(pool, e)
		}
	}
	return pool
}

func weightOf(catalog []CatalogEntry, id string) int {
	for _, e := range catalog {
		if e.Item.ID == id {
			return e.Weight
		}
	}
	return 0
}

// Jitter returns the per-round settle jitter in pixels, drawn from a stream
// separate from the reel so every viewer lands on the same value.
func Jitter(key engine.RoundSeedKey, cellHeight float64) (float64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	f := engine.NewStream(key.String() + ":jitter").Float()
	return (f*2 - 1) * 0.3 * cellHeight, nil
}
