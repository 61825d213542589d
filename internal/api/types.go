package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-reel-engine/internal/animation"
	"github.com/MJE43/stake-reel-engine/internal/games"
	"github.com/MJE43/stake-reel-engine/internal/reel"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types
const (
	ErrTypeMissingSeed   = "missing_seed_data"
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"
	ErrTypeUnauthorized  = "unauthorized"

	ErrTypeNotFound      = "not_found"
	ErrTypeComposition   = "composition_error"
	ErrTypeInvalidTicket = "invalid_ticket"

	ErrTypeTimeout  = "timeout"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory groups error types for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeMissingSeed, ErrTypeInvalidParams, ErrTypeValidation, ErrTypeUnauthorized:
		return CategoryValidation
	case ErrTypeNotFound, ErrTypeComposition, ErrTypeInvalidTicket:
		return CategoryGame
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// ComposeRequest asks for the reel of one round slot. Either Seed (the
// canonical "<gameId>-<round>-<slot>" string) or the three key parts must be set.
type ComposeRequest struct {
	Seed       string              `json:"seed,omitempty"`
	GameID     string              `json:"game_id,omitempty"`
	RoundIndex *int                `json:"round_index,omitempty"`
	SlotIndex  *int                `json:"slot_index,omitempty"`
	Catalog    []reel.CatalogEntry `json:"catalog"`
	Outcome    reel.Item           `json:"outcome"`
	BigSpin    bool                `json:"big_spin"`
	BaseStake  decimal.Decimal     `json:"base_stake"`
}

// ComposeResponse is a composed reel plus what a renderer needs to land it.
type ComposeResponse struct {
	Key           string    `json:"key"`
	Reel          reel.Reel `json:"reel"`
	TargetOffset  float64   `json:"target_offset"`
	Jitter        float64   `json:"jitter"`
	Reveal        reel.Item `json:"reveal"`
	EngineVersion string    `json:"engine_version"`
}

// RemainingRequest asks how long a spin of a round started at RoundStart
// still has to run.
type RemainingRequest struct {
	RoundStart  Timestamp `json:"round_start"`
	BaseSeconds float64   `json:"base_seconds,omitempty"`
}

// RemainingResponse reports the remaining spin time.
type RemainingResponse struct {
	RemainingMs      int64   `json:"remaining_ms"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	BaseSeconds      float64 `json:"base_seconds"`
}

// AnimationRequest starts a persisted animation. Zero values fall back to
// the configured reel layout and base spin.
type AnimationRequest struct {
	ID           string   `json:"id,omitempty"`
	TargetOffset *float64 `json:"target_offset,omitempty"`
	DurationMs   int64    `json:"duration_ms,omitempty"`
}

// AnimationResponse is the position a resuming viewer would render now.
type AnimationResponse struct {
	ID          string           `json:"id"`
	Offset      float64          `json:"offset"`
	Phase       animation.Phase  `json:"phase"`
	CenterIndex int              `json:"center_index"`
	ElapsedMs   int64            `json:"elapsed_ms"`
	RemainingMs int64            `json:"remaining_ms"`
	Record      animation.Record `json:"record"`
}

// JackpotRequest maps a ticket onto an entrant track.
type JackpotRequest struct {
	Values        []decimal.Decimal `json:"values"`
	Ticket        int               `json:"ticket"`
	TrackWidth    float64           `json:"track_width"`
	ViewportWidth float64           `json:"viewport_width"`
	Rotations     *int              `json:"rotations,omitempty"`
}

// UpgraderRequest maps a ticket onto the two-segment upgrader track.
type UpgraderRequest struct {
	ChancePercent float64 `json:"chance_percent"`
	Ticket        int     `json:"ticket"`
	TrackWidth    float64 `json:"track_width"`
	ViewportWidth float64 `json:"viewport_width"`
	Rotations     *int    `json:"rotations,omitempty"`
}

// TrackResponse is the segment layout and where the ticket lands.
type TrackResponse struct {
	Segments []games.Segment   `json:"segments"`
	Target   games.TrackTarget `json:"target"`
}

// MinesRequest is a cash-out query.
type MinesRequest struct {
	Stake     decimal.Decimal `json:"stake"`
	MineCount int             `json:"mine_count"`
	Revealed  int             `json:"revealed"`
}

// MinesResponse echoes the query with its result.
type MinesResponse struct {
	games.MinesResult
	Echo MinesRequest `json:"echo"`
}

// Timestamp accepts RFC3339 strings or unix milliseconds (number or string).
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = unq
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms)
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("timestamp %q is neither RFC3339 nor unix milliseconds", raw)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}
