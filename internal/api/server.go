package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/rubric/internal/store"
)

// HeaderOrgID selects the organization of a request.
const HeaderOrgID = "X-Org-ID"

const orgStoreKey = "orgStore"

// ShutdownTimeout bounds graceful shutdown in Serve.
const ShutdownTimeout = 10 * time.Second

// Server serves the rubric HTTP API.
type Server struct {
	store   *store.Store
	logger  *zap.Logger
	metrics *Metrics
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics replaces the server's collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer builds the router over st.
func NewServer(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		logger:  zap.NewNop(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.metrics.middleware())
	r.Use(s.requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	h := &RubricHandler{logger: s.logger, metrics: s.metrics}
	org := r.Group("/", s.requireOrg())
	{
		org.GET("/rubric", h.GetRubric)
		org.GET("/rubric/orgdefault", h.GetOrgDefault)
		org.PUT("/rubric", h.PutRubric)
		org.GET("/rubrics", h.ListRubrics)
		org.POST("/rubric/snapshot", h.Snapshot)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		RespondError(c, http.StatusServiceUnavailable, CodeInternal, err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// requireOrg scopes the request to the organization in X-Org-ID.
func (s *Server) requireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetHeader(HeaderOrgID)
		if orgID == "" {
			RespondError(c, http.StatusBadRequest, CodeMissingOrg, errors.New(HeaderOrgID+" header is required"))
			return
		}
		c.Set(orgStoreKey, s.store.ForOrg(orgID))
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("org_id", c.GetHeader(HeaderOrgID)),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func orgStore(c *gin.Context) *store.OrgStore {
	return c.MustGet(orgStoreKey).(*store.OrgStore)
}
