package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MJE43/stake-reel-engine/internal/animation"
	"github.com/MJE43/stake-reel-engine/internal/engine"
	"github.com/MJE43/stake-reel-engine/internal/games"
	"github.com/MJE43/stake-reel-engine/internal/reel"
)

var errTrailingData = errors.New("unexpected data after JSON body")

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}

	key, err := seedKeyOf(req)
	if err != nil {
		s.errorHandler.handleTyped(w, r, http.StatusBadRequest, ErrTypeMissingSeed, "Reel seed is incomplete", "seed", err)
		return
	}

	composed, err := s.composer.Compose(reel.Request{
		Key:       key,
		Catalog:   req.Catalog,
		Outcome:   req.Outcome,
		BigSpin:   req.BigSpin,
		BaseStake: req.BaseStake,
	})
	if err != nil {
		errType := ErrTypeComposition
		if errors.Is(err, engine.ErrMissingSeedData) {
			errType = ErrTypeMissingSeed
		}
		s.errorHandler.handleTyped(w, r, http.StatusUnprocessableEntity, errType, "Reel composition failed", "", err)
		return
	}
	jitter, err := reel.Jitter(key, s.layout.CellHeight)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.metrics.ReelComposed(req.BigSpin, string(composed.Pinned().Symbol.Kind))

	s.writeJSON(w, http.StatusOK, ComposeResponse{
		Key:           composed.Key,
		Reel:          composed,
		TargetOffset:  composed.TargetOffset(s.layout.CellHeight, s.layout.ViewportHeight),
		Jitter:        jitter,
		Reveal:        composed.Reveal(),
		EngineVersion: EngineVersion,
	})
}

// seedKeyOf prefers the canonical string. Missing parts become -1 so the
// key fails validation instead of silently defaulting to round 0.
func seedKeyOf(req ComposeRequest) (engine.RoundSeedKey, error) {
	if strings.TrimSpace(req.Seed) != "" {
		return engine.ParseSeedKey(req.Seed)
	}
	key := engine.RoundSeedKey{GameID: req.GameID, RoundIndex: -1, SlotIndex: -1}
	if req.RoundIndex != nil {
		key.RoundIndex = *req.RoundIndex
	}
	if req.SlotIndex != nil {
		key.SlotIndex = *req.SlotIndex
	}
	return key, key.Validate()
}

func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	var req RemainingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if req.RoundStart.IsZero() {
		s.errorHandler.HandleValidationError(w, r, "round_start", "round_start is required")
		return
	}
	if req.BaseSeconds < 0 {
		s.errorHandler.HandleValidationError(w, r, "base_seconds", "base_seconds must not be negative")
		return
	}
	base := s.baseSpin
	if req.BaseSeconds > 0 {
		base = animation.Seconds(req.BaseSeconds)
	}

	remaining := s.registry.RemainingDuration(req.RoundStart.Time, base)
	s.writeJSON(w, http.StatusOK, RemainingResponse{
		RemainingMs:      remaining.Milliseconds(),
		RemainingSeconds: remaining.Seconds(),
		BaseSeconds:      base.Seconds(),
	})
}

// handleCreateAnimation persists a record for a new spin. An id whose
// animation is still running keeps its original record.
func (s *Server) handleCreateAnimation(w http.ResponseWriter, r *http.Request) {
	var req AnimationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if req.DurationMs < 0 {
		s.errorHandler.HandleValidationError(w, r, "duration_ms", "duration_ms must not be negative")
		return
	}

	ctx := r.Context()
	if req.ID != "" {
		if frame, rec, ok := s.registry.Snapshot(ctx, req.ID, animation.Options{}); ok && frame.Phase != animation.Done {
			s.writeJSON(w, http.StatusOK, s.animationResponse(rec, frame))
			return
		}
	}

	rec := s.registry.Begin(ctx, req.ID, s.targetOf(req.TargetOffset), s.durationOf(req.DurationMs))
	s.writeJSON(w, http.StatusCreated, s.animationResponse(rec, animation.Frame{Offset: rec.StartY, Phase: animation.Coasting}))
}

// handleGetAnimation reports the current position of id. When no record
// exists and target_offset is given, a record is started first, matching what
// the first viewer of a round would do.
func (s *Server) handleGetAnimation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opts := animation.Options{Layout: s.layout}
	if raw := r.URL.Query().Get("jitter"); raw != "" {
		jitter, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.errorHandler.HandleValidationError(w, r, "jitter", "jitter must be a number")
			return
		}
		opts.Jitter = jitter
	}

	frame, rec, ok := s.registry.Snapshot(r.Context(), id, opts)
	if !ok {
		rawTarget := r.URL.Query().Get("target_offset")
		if rawTarget == "" {
			s.errorHandler.handleTyped(w, r, http.StatusNotFound, ErrTypeNotFound, "No animation record for id", "id", nil)
			return
		}
		target, err := strconv.ParseFloat(rawTarget, 64)
		if err != nil {
			s.errorHandler.HandleValidationError(w, r, "target_offset", "target_offset must be a number")
			return
		}
		var durationMs int64
		if raw := r.URL.Query().Get("duration_ms"); raw != "" {
			durationMs, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || durationMs < 0 {
				s.errorHandler.HandleValidationError(w, r, "duration_ms", "duration_ms must be a non-negative integer")
				return
			}
		}
		rec = s.registry.Begin(r.Context(), id, target, s.durationOf(durationMs))
		frame = animation.Frame{Offset: rec.StartY, Phase: animation.Coasting}
	}

	s.writeJSON(w, http.StatusOK, s.animationResponse(rec, frame))
}

func (s *Server) handleDeleteAnimation(w http.ResponseWriter, r *http.Request) {
	s.registry.Forget(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) animationResponse(rec animation.Record, frame animation.Frame) AnimationResponse {
	remaining := rec.Duration() - frame.Elapsed
	if remaining < 0 || frame.Phase == animation.Done {
		remaining = 0
	}
	return AnimationResponse{
		ID:          rec.ID,
		Offset:      frame.Offset,
		Phase:       frame.Phase,
		CenterIndex: s.layout.CenterIndex(frame.Offset),
		ElapsedMs:   frame.Elapsed.Milliseconds(),
		RemainingMs: remaining.Milliseconds(),
		Record:      rec,
	}
}

func (s *Server) targetOf(target *float64) float64 {
	if target != nil {
		return *target
	}
	return reel.PinnedOffset(s.layout.CellHeight, s.layout.ViewportHeight)
}

func (s *Server) durationOf(ms int64) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return s.baseSpin
}

func (s *Server) handleJackpotOffset(w http.ResponseWriter, r *http.Request) {
	var req JackpotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	segments, err := games.JackpotSegments(req.Values)
	if err != nil {
		s.errorHandler.handleTyped(w, r, http.StatusBadRequest, ErrTypeValidation, "Invalid jackpot entrants", "values", err)
		return
	}
	s.writeTrack(w, r, segments, req.Ticket, req.TrackWidth, req.ViewportWidth, req.Rotations)
}

func (s *Server) handleUpgraderOffset(w http.ResponseWriter, r *http.Request) {
	var req UpgraderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	segments, err := games.UpgraderSegments(req.ChancePercent)
	if err != nil {
		s.errorHandler.handleTyped(w, r, http.StatusBadRequest, ErrTypeValidation, "Invalid upgrader chance", "chance_percent", err)
		return
	}
	s.writeTrack(w, r, segments, req.Ticket, req.TrackWidth, req.ViewportWidth, req.Rotations)
}

func (s *Server) writeTrack(w http.ResponseWriter, r *http.Request, segments []games.Segment, ticket int, width, viewport float64, rotations *int) {
	if width <= 0 || viewport < 0 {
		s.errorHandler.HandleValidationError(w, r, "track_width", "track_width must be positive and viewport_width non-negative")
		return
	}
	track := games.Track{Width: width, ViewportWidth: viewport, Rotations: s.rotations}
	if rotations != nil {
		if *rotations < 0 {
			s.errorHandler.HandleValidationError(w, r, "rotations", "rotations must not be negative")
			return
		}
		track.Rotations = *rotations
	}

	target, err := games.MapTicketToOffset(segments, ticket, track)
	if err != nil {
		errType := ErrTypeValidation
		if errors.Is(err, games.ErrTicketOutOfRange) {
			errType = ErrTypeInvalidTicket
		}
		s.errorHandler.handleTyped(w, r, http.StatusBadRequest, errType, "Ticket cannot be mapped", "ticket", err)
		return
	}
	s.writeJSON(w, http.StatusOK, TrackResponse{Segments: segments, Target: target})
}

func (s *Server) handleMinesPayout(w http.ResponseWriter, r *http.Request) {
	var req MinesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}
	if req.Stake.IsNegative() {
		s.errorHandler.HandleValidationError(w, r, "stake", "stake must not be negative")
		return
	}
	if err := games.ValidateMinesQuery(req.MineCount, req.Revealed); err != nil {
		s.errorHandler.HandleValidationError(w, r, "mine_count", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, MinesResponse{
		MinesResult: games.MinesPayout(req.Stake, req.MineCount, req.Revealed),
		Echo:        req,
	})
}
