package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MJE43/stake-reel-engine/internal/animation"
	"github.com/MJE43/stake-reel-engine/internal/games"
	"github.com/MJE43/stake-reel-engine/internal/monitoring"
	"github.com/MJE43/stake-reel-engine/internal/reel"
)

// TokenHeader carries the API token when one is configured.
const TokenHeader = "X-API-Token"

const defaultRequestTimeout = 30 * time.Second

// Options wires a Server. Only Registry is required in production; the rest
// fall back to sensible defaults.
type Options struct {
	Registry         *animation.Registry
	Store            animation.Store
	Composer         *reel.Composer
	Metrics          *monitoring.Metrics
	Gatherer         prometheus.Gatherer
	Logger           *zap.Logger
	Layout           animation.Layout
	BaseSpin         time.Duration
	JackpotRotations int
	APIToken         string
	RequestTimeout   time.Duration
}

// Server handles HTTP requests
type Server struct {
	registry     *animation.Registry
	store        animation.Store
	composer     *reel.Composer
	metrics      *monitoring.Metrics
	gatherer     prometheus.Gatherer
	log          *zap.Logger
	errorHandler *ErrorHandler
	layout       animation.Layout
	baseSpin     time.Duration
	rotations    int
	token        string
	timeout      time.Duration
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("api")

	store := opts.Store
	registry := opts.Registry
	if registry == nil {
		if store == nil {
			store = animation.NewMemoryStore()
		}
		registry = animation.NewRegistry(store, animation.NewIntervalScheduler(animation.DefaultFrameRate),
			animation.WithLogger(log), animation.WithMetrics(opts.Metrics))
	}
	composer := opts.Composer
	if composer == nil {
		composer = reel.NewComposer()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	layout := opts.Layout
	if layout.CellHeight <= 0 {
		layout.CellHeight = 120
	}
	if layout.ViewportHeight <= 0 {
		layout.ViewportHeight = 480
	}
	baseSpin := opts.BaseSpin
	if baseSpin <= 0 {
		baseSpin = animation.Seconds(5.5)
	}
	rotations := opts.JackpotRotations
	if rotations <= 0 {
		rotations = games.DefaultRotations
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s := &Server{
		registry:     registry,
		store:        store,
		composer:     composer,
		metrics:      opts.Metrics,
		gatherer:     gatherer,
		log:          log,
		errorHandler: NewErrorHandler(log),
		layout:       layout,
		baseSpin:     baseSpin,
		rotations:    rotations,
		token:        opts.APIToken,
		timeout:      timeout,
		startTime:    time.Now(),
	}
	log.Info("api server ready",
		zap.Bool("token_required", s.token != ""),
		zap.Duration("base_spin", baseSpin),
		zap.Float64("cell_height", layout.CellHeight),
	)
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/version", s.handleVersion)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.tokenMiddleware)

		r.Post("/reels/compose", s.handleCompose)
		r.Post("/rounds/remaining", s.handleRemaining)

		r.Post("/animations", s.handleCreateAnimation)
		r.Get("/animations/{id}", s.handleGetAnimation)
		r.Delete("/animations/{id}", s.handleDeleteAnimation)

		r.Post("/jackpot/offset", s.handleJackpotOffset)
		r.Post("/upgrader/offset", s.handleUpgraderOffset)
		r.Post("/mines/payout", s.handleMinesPayout)
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

// decodeJSON rejects unknown fields and trailing garbage.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
