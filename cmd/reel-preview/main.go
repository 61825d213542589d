// Command reel-preview prints the reel composed for a seed key and the
// offsets a viewer would render while it spins.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-reel-engine/internal/animation"
	"github.com/MJE43/stake-reel-engine/internal/easing"
	"github.com/MJE43/stake-reel-engine/internal/engine"
	"github.com/MJE43/stake-reel-engine/internal/reel"
)

func demoCatalog() []reel.CatalogEntry {
	entry := func(id, value string, weight int) reel.CatalogEntry {
		return reel.CatalogEntry{Item: reel.Item{ID: id, Name: id, Value: decimal.RequireFromString(value)}, Weight: weight}
	}
	return []reel.CatalogEntry{
		entry("karambit-fade", "1450", 120),
		entry("awp-asiimov", "95", 2880),
		entry("ak-redline", "18.5", 17000),
		entry("usp-cortex", "3.2", 30000),
		entry("sticker-capsule", "0.45", 50000),
	}
}

func main() {
	seed := flag.String("seed", "demo-0-0", "seed key <gameId>-<round>-<slot>")
	catalogPath := flag.String("catalog", "", "JSON file with [{item:{id,name,value},weight}]; empty uses a demo catalog")
	outcomeID := flag.String("outcome", "", "id of the winning item; empty picks the first catalog entry")
	bigSpin := flag.Bool("big-spin", false, "compose a big-spin reel")
	baseStake := flag.String("base-stake", "1", "base stake for rarity classification")
	duration := flag.Duration("duration", 5500*time.Millisecond, "spin duration")
	step := flag.Duration("step", 250*time.Millisecond, "trace sampling interval")
	cell := flag.Float64("cell", 120, "cell height in pixels")
	viewport := flag.Float64("viewport", 480, "viewport height in pixels")
	flag.Parse()

	if err := run(*seed, *catalogPath, *outcomeID, *bigSpin, *baseStake, *duration, *step, *cell, *viewport); err != nil {
		fmt.Fprintf(os.Stderr, "reel-preview: %v\n", err)
		os.Exit(1)
	}
}

func run(seed, catalogPath, outcomeID string, bigSpin bool, stake string, duration, step time.Duration, cell, viewport float64) error {
	key, err := engine.ParseSeedKey(seed)
	if err != nil {
		return err
	}
	stakeValue, err := decimal.NewFromString(stake)
	if err != nil {
		return fmt.Errorf("base stake: %w", err)
	}
	if step <= 0 {
		return fmt.Errorf("step must be positive")
	}

	catalog := demoCatalog()
	if catalogPath != "" {
		raw, err := os.ReadFile(catalogPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &catalog); err != nil {
			return fmt.Errorf("decode catalog: %w", err)
		}
	}
	if len(catalog) == 0 {
		return reel.ErrEmptyCatalog
	}
	outcome := catalog[0].Item
	if outcomeID != "" {
		found := false
		for _, e := range catalog {
			if e.Item.ID == outcomeID {
				outcome, found = e.Item, true
				break
			}
		}
		if !found {
			return fmt.Errorf("outcome %q not in catalog", outcomeID)
		}
	}

	composed, err := reel.NewComposer().Compose(reel.Request{
		Key:       key,
		Catalog:   catalog,
		Outcome:   outcome,
		BigSpin:   bigSpin,
		BaseStake: stakeValue,
	})
	if err != nil {
		return err
	}
	jitter, err := reel.Jitter(key, cell)
	if err != nil {
		return err
	}

	fmt.Printf("reel %s (big spin: %v)\n\n", composed.Key, bigSpin)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "idx\tsymbol\titem\tweight\tflags")
	for i, s := range composed.Slots {
		name := "-"
		if s.Symbol.Item != nil {
			name = s.Symbol.Item.ID
		}
		flags := ""
		if s.IsAuthoritative {
			flags += "pinned "
		}
		if s.IsSpecial {
			flags += "special"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i, s.Symbol.Kind, name, s.TicketWeight, flags)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nreveal: %s\n", composed.Reveal().ID)

	start := time.UnixMilli(0)
	layout := animation.Layout{CellHeight: cell, ViewportHeight: viewport}
	rec := animation.NewRecord(composed.Key, start, duration, 0, composed.TargetOffset(cell, viewport))
	tl := animation.TimelineFor(rec, easing.Reel, jitter)

	fmt.Printf("target %.1fpx, jitter %+.1fpx, settle %s\n\n", rec.TargetY, jitter, animation.SettleDuration)
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "t\toffset\tcenter\tphase")
	for at := start; ; at = at.Add(step) {
		f := tl.At(at)
		fmt.Fprintf(tw, "%s\t%.1f\t%d\t%s\n", f.Elapsed, f.Offset, layout.CenterIndex(f.Offset), f.Phase)
		if f.Phase == animation.Done {
			break
		}
	}
	return tw.Flush()
}
