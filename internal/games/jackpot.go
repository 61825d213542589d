package games

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// TicketRange is the exclusive upper bound of fairness tickets.
	TicketRange = 100000
	// DefaultRotations is the number of full coasting laps before the target.
	DefaultRotations = 8
)

var (
	ErrNoSegments       = errors.New("jackpot needs at least one entrant with positive value")
	ErrTicketOutOfRange = errors.New("ticket out of range")
)

var hundred = decimal.NewFromInt(100)

// Segment is one entrant's slice of the jackpot track.
type Segment struct {
	WidthPercent float64 `json:"width_percent"`
	StartPercent float64 `json:"start_percent"`
}

// Track describes the scrolling strip the segments are laid out on.
type Track struct {
	Width         float64 `json:"width"`
	ViewportWidth float64 `json:"viewport_width"`
	Rotations     int     `json:"rotations"`
}

// TrackTarget is where a ticket lands.
type TrackTarget struct {
	SegmentIndex    int     `json:"segment_index"`
	PositionPercent float64 `json:"position_percent"`
	WithinSegment   float64 `json:"within_segment"`
	Offset          float64 `json:"offset"`
}

// JackpotSegments sizes each entrant's segment as value/total*100, in entrant order.
func JackpotSegments(values []decimal.Decimal) ([]Segment, error) {
	total := decimal.Zero
	for i, v := range values {
		if v.IsNegative() {
			return nil, fmt.Errorf("entrant %d has negative value %s", i, v)
		}
		total = total.Add(v)
	}
	if !total.IsPositive() {
		return nil, ErrNoSegments
	}

	segments := make([]Segment, len(values))
	start := 0.0
	for i, v := range values {
		width := v.Div(total).Mul(hundred).InexactFloat64()
		segments[i] = Segment{WidthPercent: width, StartPercent: start}
		start += width
	}
	return segments, nil
}

// UpgraderSegments splits the track into a win segment of chancePercent
// followed by the losing remainder.
func UpgraderSegments(chancePercent float64) ([]Segment, error) {
	if chancePercent <= 0 || chancePercent >= 100 {
		return nil, fmt.Errorf("upgrader chance must be in (0, 100), got %v", chancePercent)
	}
	return []Segment{
		{WidthPercent: chancePercent, StartPercent: 0},
		{WidthPercent: 100 - chancePercent, StartPercent: chancePercent},
	}, nil
}

// MapTicketToOffset converts a fairness ticket into the scroll offset that,
// after track.Rotations full laps, leaves the winning segment's ticket point
// centered under the selector.
func MapTicketToOffset(segments []Segment, ticket int, track Track) (TrackTarget, error) {
	if len(segments) == 0 {
		return TrackTarget{}, ErrNoSegments
	}
	if ticket < 0 || ticket >= TicketRange {
		return TrackTarget{}, fmt.Errorf("%w: %d not in [0, %d)", ErrTicketOutOfRange, ticket, TicketRange)
	}

	ticketPct := float64(ticket) / TicketRange * 100

	// Rounding can leave the widths just short of 100; clamp to the last segment.
	index := len(segments) - 1
	start := 0.0
	cumulative := 0.0
	for i, s := range segments {
		if cumulative+s.WidthPercent > ticketPct {
			index = i
			start = cumulative
			break
		}
		cumulative += s.WidthPercent
		start = cumulative - s.WidthPercent
	}

	seg := segments[index]
	position := ticketPct
	if end := start + seg.WidthPercent; position > end {
		position = end
	}
	within := 0.0
	if seg.WidthPercent > 0 {
		within = (position - start) / seg.WidthPercent
	}

	offset := float64(track.Rotations)*track.Width + position/100*track.Width - track.ViewportWidth/2
	return TrackTarget{
		SegmentIndex:    index,
		PositionPercent: position,
		WithinSegment:   within,
		Offset:          offset,
	}, nil
}

// SumWidths is the total percent covered by segments.
func SumWidths(segments []Segment) float64 {
	sum := 0.0
	for _, s := range segments {
		sum += s.WidthPercent
	}
	return sum
}
