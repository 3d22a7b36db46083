package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wgwatch/internal/agent"
	"wgwatch/internal/api"
	"wgwatch/internal/model"
)

// HealthSource reports the monitor failure streak.
type HealthSource interface {
	Status() agent.HealthStatus
}

// Server exposes the latest report, health and Prometheus metrics over HTTP.
// It is a Publisher: the monitor hands it every report.
type Server struct {
	iface    string
	health   HealthSource
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	engine   *gin.Engine

	mu     sync.RWMutex
	latest *model.Report
}

// New builds the router. gatherer may be nil to disable /metrics.
func New(iface string, health HealthSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{iface: iface, health: health, gatherer: gatherer, logger: logger}

	r := gin.New()
	// Public keys are base64: '/' must arrive escaped and '+' must survive,
	// so params are matched raw and unescaped in the handler.
	r.UseRawPath = true
	r.UnescapePathValues = false
	r.Use(gin.Recovery(), s.logRequests())

	r.GET(api.ReportPath, s.handleReport)
	r.GET(api.PeerPath+":key", s.handlePeer)
	r.GET(api.HealthPath, s.handleHealth)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Publish stores r as the latest report.
func (s *Server) Publish(r model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &r
}

// Latest returns the latest report or a placeholder before the first cycle.
func (s *Server) Latest() model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return model.Report{
			Interface: model.InterfaceRecord{Name: s.iface},
			Error:     "no data yet",
			Peers:     map[string]model.PeerView{},
		}
	}
	return *s.latest
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleReport(c *gin.Context) {
	r := s.Latest()
	status := http.StatusOK
	if !r.Available {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, r)
}

func (s *Server) handlePeer(c *gin.Context) {
	key, err := url.PathUnescape(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid peer key"})
		return
	}
	r := s.Latest()
	if !r.Available {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: r.Error})
		return
	}
	p, ok := r.Peers[key]
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "unknown peer"})
		return
	}
	c.JSON(http.StatusOK, api.PeerResponse{
		Interface:   r.Interface.Name,
		PublicKey:   key,
		CollectedAt: r.CollectedAt,
		Peer:        p,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := api.HealthResponse{Interface: s.iface, Healthy: true}
	if s.health != nil {
		st := s.health.Status()
		resp.Healthy = st.Healthy
		resp.ConsecutiveFailures = st.ConsecutiveFailures
		resp.LastSuccess = st.LastSuccess
		resp.LastFailure = st.LastFailure
		resp.LastError = st.LastError
	}
	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
