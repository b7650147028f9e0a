package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler reports process and dependency health.
//
// Routes handled:
// - GET /health       -> Ready
// - GET /health/live  -> Live
// - GET /health/ready -> Ready
type HealthHandler struct {
	db     *sql.DB
	redis  *redis.Client // nil when rate limiting is in-memory
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. redisClient may be nil.
func NewHealthHandler(db *sql.DB, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}
}

// RegisterRoutes registers health routes on the provided mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Ready)
	mux.HandleFunc("GET /health/live", h.Live)
	mux.HandleFunc("GET /health/ready", h.Ready)
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]dependencyHealth `json:"dependencies,omitempty"`
}

type dependencyHealth struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Live answers 200 while the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeOK(w, healthResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

// Ready checks the database and, when configured, Redis. A database
// failure is 503. A Redis failure only degrades, since rate limiting
// fails open.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]dependencyHealth),
	}

	db := check(ctx, h.db.PingContext)
	resp.Dependencies["database"] = db
	if db.Status != StatusHealthy {
		resp.Status = StatusUnhealthy
	}

	if h.redis != nil {
		rd := check(ctx, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		})
		resp.Dependencies["redis"] = rd
		if rd.Status != StatusHealthy && resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
		h.logger.Warn("health check failed", "dependencies", resp.Dependencies)
	}
	writeJSON(w, status, resp)
}

func check(ctx context.Context, ping func(context.Context) error) dependencyHealth {
	start := time.Now()
	err := ping(ctx)
	dep := dependencyHealth{
		Status:    StatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}
