package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/after5cst/gracecam/lib/dispatch"
	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/journal"
	"github.com/after5cst/gracecam/lib/metrics"
	"github.com/after5cst/gracecam/lib/position"
)

//go:embed static
var staticFS embed.FS

type Enqueuer interface {
	PushPosition(src dispatch.Source, p position.Position) dispatch.Trigger
}

// History is the read side of the activation journal.
type History interface {
	Recent(limit int) ([]event.Report, error)
}

type Server struct {
	queue   Enqueuer
	board   *Board
	hub     *Hub
	history History
	limiter *rate.Limiter
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewServer builds the HTTP front end. j may be nil, which disables
// /api/history. Manual triggers closer together than minInterval are
// refused.
func NewServer(queue Enqueuer, board *Board, hub *Hub, j *journal.Journal, minInterval time.Duration, logger *slog.Logger) *Server {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	s := &Server{
		queue:   queue,
		board:   board,
		hub:     hub,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "http"),
		mux:     http.NewServeMux(),
	}
	if j != nil {
		s.history = j
	}

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	s.mux.HandleFunc("GET /preset/{selector}", s.handlePreset)
	s.mux.HandleFunc("POST /preset/{selector}", s.handlePreset)
	s.mux.HandleFunc("GET /api/stations", s.handleStations)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /ws", hub.ServeWs)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.Handle("GET /", http.FileServer(http.FS(sub)))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type presetResponse struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Position string `json:"position"`
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	selector := r.PathValue("selector")
	p, err := position.Parse(selector)
	if err != nil {
		metrics.TriggersTotal.WithLabelValues(string(dispatch.SourceManual), "rejected").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.limiter.Allow() {
		metrics.TriggersTotal.WithLabelValues(string(dispatch.SourceManual), "throttled").Inc()
		s.logger.Info("manual trigger too soon", "position", p.String(), "remote", r.RemoteAddr)
		http.Error(w, "too soon after the previous request", http.StatusTooManyRequests)
		return
	}

	t := s.queue.PushPosition(dispatch.SourceManual, p)
	s.logger.Info("manual trigger queued", "trace_id", t.ID, "position", p.String(), "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, presetResponse{Status: "accepted", ID: t.ID, Position: p.String()})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	reports, err := s.history.Recent(limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
