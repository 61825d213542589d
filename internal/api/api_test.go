package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/stake-reel-engine/internal/animation"
	"github.com/MJE43/stake-reel-engine/internal/easing"
	"github.com/MJE43/stake-reel-engine/internal/monitoring"
	"github.com/MJE43/stake-reel-engine/internal/reel"
)

type idleScheduler struct{}

func (idleScheduler) RequestFrame(func(time.Time)) func() { return func() {} }

type harness struct {
	t       *testing.T
	now     time.Time
	store   *animation.MemoryStore
	metrics *monitoring.Metrics
	handler http.Handler
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	h := &harness{t: t, now: time.UnixMilli(1_700_000_000_000), store: animation.NewMemoryStore()}
	reg := prometheus.NewRegistry()
	h.metrics = monitoring.NewMetrics(reg)
	registry := animation.NewRegistry(h.store, idleScheduler{},
		animation.WithClock(func() time.Time { return h.now }),
		animation.WithMetrics(h.metrics),
	)
	h.handler = NewServer(Options{
		Registry: registry,
		Store:    h.store,
		Metrics:  h.metrics,
		Gatherer: reg,
		Layout:   animation.Layout{CellHeight: 120, ViewportHeight: 480},
		BaseSpin: 5500 * time.Millisecond,
		APIToken: token,
	}).Routes()
	return h
}

func (h *harness) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), "body: %s", w.Body.String())
	return out
}

func catalog() []reel.CatalogEntry {
	return []reel.CatalogEntry{
		{Item: reel.Item{ID: "A", Name: "A", Value: decimal.NewFromInt(1)}, Weight: 70000},
		{Item: reel.Item{ID: "B", Name: "B", Value: decimal.NewFromInt(5)}, Weight: 30000},
	}
}

// animationBody mirrors AnimationResponse with the phase as its text form.
type animationBody struct {
	ID          string           `json:"id"`
	Offset      float64          `json:"offset"`
	Phase       string           `json:"phase"`
	CenterIndex int              `json:"center_index"`
	ElapsedMs   int64            `json:"elapsed_ms"`
	RemainingMs int64            `json:"remaining_ms"`
	Record      animation.Record `json:"record"`
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthCheckResponse](t, w)
	assert.Equal(t, HealthStatusHealthy, resp.Status)
	assert.Equal(t, HealthStatusHealthy, resp.Checks["store"].Status)
	assert.Contains(t, resp.Checks, "animations")
	assert.NotEmpty(t, resp.RequestID)
}

func TestHealthWithoutStoreIsDegraded(t *testing.T) {
	registry := animation.NewRegistry(animation.NewMemoryStore(), idleScheduler{})
	srv := NewServer(Options{Registry: registry, Gatherer: prometheus.NewRegistry()})

	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HealthStatusDegraded, decode[HealthCheckResponse](t, w).Status)
}

func TestVersionEndpoint(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodGet, "/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, EngineVersion, decode[VersionInfo](t, w).EngineVersion)
	assert.Equal(t, EngineVersion, w.Header().Get("X-Engine-Version"))
}

func TestComposeEndpoint(t *testing.T) {
	h := newHarness(t, "")
	cat := catalog()
	w := h.do(http.MethodPost, "/api/v1/reels/compose", ComposeRequest{
		Seed:    "g1-0-0",
		Catalog: cat,
		Outcome: cat[1].Item,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ComposeResponse](t, w)
	assert.Equal(t, "g1-0-0", resp.Key)
	pinned := resp.Reel.Pinned()
	require.NotNil(t, pinned.Item)
	assert.Equal(t, "B", pinned.Item.ID)
	assert.True(t, pinned.IsAuthoritative)
	assert.Equal(t, "B", resp.Reveal.ID)
	assert.Equal(t, -2640.0, resp.TargetOffset)
	assert.InDelta(t, 0, resp.Jitter, 0.3*120)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ReelsComposed.WithLabelValues("normal", "standard")))
}

func TestComposeByKeyParts(t *testing.T) {
	h := newHarness(t, "")
	cat := catalog()
	round, slot := 0, 0
	bySeed := decode[ComposeResponse](t, h.do(http.MethodPost, "/api/v1/reels/compose", ComposeRequest{
		Seed: "g1-0-0", Catalog: cat, Outcome: cat[0].Item,
	}))
	byParts := decode[ComposeResponse](t, h.do(http.MethodPost, "/api/v1/reels/compose", ComposeRequest{
		GameID: "g1", RoundIndex: &round, SlotIndex: &slot, Catalog: cat, Outcome: cat[0].Item,
	}))
	assert.Equal(t, bySeed.Reel, byParts.Reel)
	assert.Equal(t, bySeed.Jitter, byParts.Jitter)
}

func TestComposeBigSpinHidesRareOutcome(t *testing.T) {
	h := newHarness(t, "")
	cat := catalog()
	w := h.do(http.MethodPost, "/api/v1/reels/compose", ComposeRequest{
		Seed:      "battle-7-2-1",
		Catalog:   cat,
		Outcome:   cat[1].Item,
		BigSpin:   true,
		BaseStake: decimal.NewFromInt(1),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ComposeResponse](t, w)
	pinned := resp.Reel.Pinned()
	assert.Equal(t, reel.KindDecoy, pinned.Symbol.Kind)
	assert.True(t, pinned.IsSpecial)
	assert.Equal(t, "B", resp.Reveal.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ReelsComposed.WithLabelValues("big_spin", "decoy")))
}

func TestComposeFailsClosedOnMissingSeed(t *testing.T) {
	h := newHarness(t, "")
	cat := catalog()
	w := h.do(http.MethodPost, "/api/v1/reels/compose", ComposeRequest{GameID: "g1", Catalog: cat, Outcome: cat[0].Item})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[EngineError](t, w)
	assert.Equal(t, ErrTypeMissingSeed, resp.Type)
	assert.Equal(t, string(CategoryValidation), w.Header().Get("X-Error-Category"))
	assert.NotEmpty(t, resp.RequestID)
}

func TestComposeRejectsEmptyCatalog(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodPost, "/api/v1/reels/compose", ComposeRequest{Seed: "g1-0-0", Outcome: reel.Item{ID: "A"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, ErrTypeComposition, decode[EngineError](t, w).Type)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodPost, "/api/v1/mines/payout", `{"stake":"1","mine_count":3,"revealed":1,"extra":true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrTypeValidation, decode[EngineError](t, w).Type)
}

func TestRemainingEndpoint(t *testing.T) {
	h := newHarness(t, "")

	cases := []struct {
		name string
		body string
		want int64
	}{
		{"unix ms", fmt.Sprintf(`{"round_start":%d,"base_seconds":5.5}`, h.now.Add(-2*time.Second).UnixMilli()), 3500},
		{"rfc3339", fmt.Sprintf(`{"round_start":%q}`, h.now.Add(-1*time.Second).UTC().Format(time.RFC3339)), 4500},
		{"expired", fmt.Sprintf(`{"round_start":"%d"}`, h.now.Add(-time.Minute).UnixMilli()), 0},
		{"future start", fmt.Sprintf(`{"round_start":%d}`, h.now.Add(time.Hour).UnixMilli()), 5500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/api/v1/rounds/remaining", tc.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tc.want, decode[RemainingResponse](t, w).RemainingMs)
		})
	}

	w := h.do(http.MethodPost, "/api/v1/rounds/remaining", `{"round_start":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnimationLifecycle(t *testing.T) {
	h := newHarness(t, "")
	target := -2640.0
	start := h.now

	w := h.do(http.MethodPost, "/api/v1/animations", AnimationRequest{ID: "battle-1-0", TargetOffset: &target, DurationMs: 5000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[animationBody](t, w)
	assert.Equal(t, "coasting", created.Phase)
	assert.Equal(t, 0.0, created.Offset)
	assert.Equal(t, start.UnixMilli(), created.Record.StartTime)
	assert.Equal(t, 1, h.store.Len())

	h.now = start.Add(2 * time.Second)
	w = h.do(http.MethodGet, "/api/v1/animations/battle-1-0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mid := decode[animationBody](t, w)
	assert.Equal(t, "coasting", mid.Phase)
	assert.InDelta(t, target*easing.Reel.Solve(0.4), mid.Offset, 1e-9)
	assert.Equal(t, int64(2000), mid.ElapsedMs)
	assert.Equal(t, int64(3000), mid.RemainingMs)

	// A second create for a running id keeps the original start.
	w = h.do(http.MethodPost, "/api/v1/animations", AnimationRequest{ID: "battle-1-0", DurationMs: 9000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, start.UnixMilli(), decode[animationBody](t, w).Record.StartTime)

	h.now = start.Add(6 * time.Second)
	w = h.do(http.MethodGet, "/api/v1/animations/battle-1-0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[animationBody](t, w)
	assert.Equal(t, "done", done.Phase)
	assert.Equal(t, target, done.Offset)
	assert.Equal(t, reel.PinnedIndex, done.CenterIndex)
	assert.Zero(t, h.store.Len())

	w = h.do(http.MethodGet, "/api/v1/animations/battle-1-0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnimationDefaultsAndMintedID(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodPost, "/api/v1/animations", AnimationRequest{})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[animationBody](t, w)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, reel.PinnedOffset(120, 480), resp.Record.TargetY)
	assert.Equal(t, int64(5500), resp.Record.TotalDuration)
}

func TestGetAnimationStartsWithTarget(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodGet, "/api/v1/animations/r9?target_offset=-100&duration_ms=1000", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.0, decode[animationBody](t, w).Offset)

	rec, err := h.store.Load(context.Background(), "r9")
	require.NoError(t, err)
	assert.Equal(t, -100.0, rec.TargetY)
	assert.Equal(t, int64(1000), rec.TotalDuration)

	w = h.do(http.MethodGet, "/api/v1/animations/r10?target_offset=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteAnimation(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/v1/animations", AnimationRequest{ID: "x"}).Code)

	w := h.do(http.MethodDelete, "/api/v1/animations/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, h.store.Len())

	// Deleting again is harmless.
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/animations/x", nil).Code)
}

func TestJackpotOffsetEndpoint(t *testing.T) {
	h := newHarness(t, "")
	zero := 0
	w := h.do(http.MethodPost, "/api/v1/jackpot/offset", JackpotRequest{
		Values:     []decimal.Decimal{decimal.NewFromInt(60), decimal.NewFromInt(40)},
		Ticket:     70000,
		TrackWidth: 1000,
		Rotations:  &zero,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[TrackResponse](t, w)
	require.Len(t, resp.Segments, 2)
	assert.InDelta(t, 60.0, resp.Segments[0].WidthPercent, 1e-9)
	assert.Equal(t, 1, resp.Target.SegmentIndex)
	assert.InDelta(t, 0.25, resp.Target.WithinSegment, 1e-9)
	assert.InDelta(t, 700.0, resp.Target.Offset, 1e-9)
}

func TestJackpotOffsetUsesConfiguredRotations(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodPost, "/api/v1/jackpot/offset", JackpotRequest{
		Values:        []decimal.Decimal{decimal.NewFromInt(1)},
		Ticket:        0,
		TrackWidth:    1000,
		ViewportWidth: 400,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 8*1000.0-200, decode[TrackResponse](t, w).Target.Offset, 1e-9)
}

func TestJackpotOffsetErrors(t *testing.T) {
	h := newHarness(t, "")

	w := h.do(http.MethodPost, "/api/v1/jackpot/offset", JackpotRequest{TrackWidth: 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/jackpot/offset", JackpotRequest{
		Values: []decimal.Decimal{decimal.NewFromInt(1)}, Ticket: 100000, TrackWidth: 1000,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrTypeInvalidTicket, decode[EngineError](t, w).Type)
}

func TestUpgraderOffsetEndpoint(t *testing.T) {
	h := newHarness(t, "")
	zero := 0
	w := h.do(http.MethodPost, "/api/v1/upgrader/offset", UpgraderRequest{
		ChancePercent: 25, Ticket: 10000, TrackWidth: 1000, Rotations: &zero,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[TrackResponse](t, w)
	assert.Equal(t, 0, resp.Target.SegmentIndex)
	assert.InDelta(t, 100.0, resp.Target.Offset, 1e-9)

	w = h.do(http.MethodPost, "/api/v1/upgrader/offset", UpgraderRequest{ChancePercent: 100, TrackWidth: 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMinesPayoutEndpoint(t *testing.T) {
	h := newHarness(t, "")
	w := h.do(http.MethodPost, "/api/v1/mines/payout", `{"stake":"10","mine_count":3,"revealed":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[MinesResponse](t, w)
	assert.Equal(t, 1.92, resp.Multiplier)
	assert.True(t, decimal.RequireFromString("19.2").Equal(resp.Payout), "payout %s", resp.Payout)
	assert.Equal(t, 3, resp.Echo.MineCount)
}

func TestMinesPayoutRejectsInvalidQuery(t *testing.T) {
	h := newHarness(t, "")
	for _, body := range []string{
		`{"stake":"10","mine_count":0,"revealed":1}`,
		`{"stake":"10","mine_count":3,"revealed":23}`,
		`{"stake":"-1","mine_count":3,"revealed":1}`,
	} {
		w := h.do(http.MethodPost, "/api/v1/mines/payout", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, ErrTypeValidation, decode[EngineError](t, w).Type)
	}
}

func TestTokenMiddleware(t *testing.T) {
	h := newHarness(t, "s3cret")
	body := `{"stake":"1","mine_count":1,"revealed":1}`

	w := h.do(http.MethodPost, "/api/v1/mines/payout", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, ErrTypeUnauthorized, decode[EngineError](t, w).Type)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/v1/mines/payout", body, TokenHeader, "wrong").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/mines/payout", body, TokenHeader, "s3cret").Code)

	// Probes stay open.
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil).Code)
}

func TestRecoveryHandlerWritesEngineError(t *testing.T) {
	eh := NewErrorHandler(nil)
	handler := eh.RecoveryHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decode[EngineError](t, w)
	assert.Equal(t, ErrTypeInternal, resp.Type)
	assert.Equal(t, "boom", resp.Context["panic"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, "")
	h.do(http.MethodDelete, "/api/v1/animations/abc", nil)
	h.do(http.MethodDelete, "/api/v1/animations/def", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.HTTPRequests.WithLabelValues(http.MethodDelete, "/api/v1/animations/{id}", "2xx")))

	w := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "reel_http_requests_total"))
}

func TestCORSPreflightSkipsToken(t *testing.T) {
	h := newHarness(t, "s3cret")
	w := h.do(http.MethodOptions, "/api/v1/animations/abc", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), TokenHeader)
}
