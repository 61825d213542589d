package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingSeedData is returned when a seed key lacks one of its components.
// Callers must refuse to render rather than guess a key.
var ErrMissingSeedData = errors.New("missing seed data")

// RoundSeedKey identifies the random stream for one reel slot of one round.
// Every client must derive a byte-identical canonical string from it.
type RoundSeedKey struct {
	GameID     string `json:"game_id"`
	RoundIndex int    `json:"round_index"`
	SlotIndex  int    `json:"slot_index"`
}

// Validate reports ErrMissingSeedData when the key cannot seed a stream.
func (k RoundSeedKey) Validate() error {
	if strings.TrimSpace(k.GameID) == "" {
		return fmt.Errorf("%w: game id is required", ErrMissingSeedData)
	}
	if k.RoundIndex < 0 {
		return fmt.Errorf("%w: round index must be >= 0, got %d", ErrMissingSeedData, k.RoundIndex)
	}
	if k.SlotIndex < 0 {
		return fmt.Errorf("%w: slot index must be >= 0, got %d", ErrMissingSeedData, k.SlotIndex)
	}
	return nil
}

// String returns the canonical "<gameId>-<roundIndex>-<slotIndex>" form.
func (k RoundSeedKey) String() string {
	return k.GameID + "-" + strconv.Itoa(k.RoundIndex) + "-" + strconv.Itoa(k.SlotIndex)
}

// Stream opens a fresh deterministic stream for the key.
func (k RoundSeedKey) Stream() (*Stream, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return NewStream(k.String()), nil
}

// ParseSeedKey parses the canonical form. Round and slot are taken from the
// right so game ids may themselves contain dashes.
func ParseSeedKey(s string) (RoundSeedKey, error) {
	s = strings.TrimSpace(s)
	slotSep := strings.LastIndexByte(s, '-')
	if slotSep <= 0 {
		return RoundSeedKey{}, fmt.Errorf("%w: malformed seed key %q", ErrMissingSeedData, s)
	}
	roundSep := strings.LastIndexByte(s[:slotSep], '-')
	if roundSep <= 0 {
		return RoundSeedKey{}, fmt.Errorf("%w: malformed seed key %q", ErrMissingSeedData, s)
	}

	round, err := strconv.Atoi(s[roundSep+1 : slotSep])
	if err != nil {
		return RoundSeedKey{}, fmt.Errorf("%w: invalid round index in %q", ErrMissingSeedData, s)
	}
	slot, err := strconv.Atoi(s[slotSep+1:])
	if err != nil {
		return RoundSeedKey{}, fmt.Errorf("%w: invalid slot index in %q", ErrMissingSeedData, s)
	}

	key := RoundSeedKey{GameID: s[:roundSep], RoundIndex: round, SlotIndex: slot}
	if err := key.Validate(); err != nil {
		return RoundSeedKey{}, err
	}
	return key, nil
}
