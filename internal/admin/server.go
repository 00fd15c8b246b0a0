// Package admin serves relayd's HTTP side channel: health, prometheus metrics, session
// counters, the opcode table and the latest framebuffer.
package admin

import (
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/inkrelay/internal/auth"
	"github.com/danmuck/inkrelay/internal/observability"
	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/protocol/schema"
	"github.com/danmuck/inkrelay/internal/relay"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

const shutdownTimeout = 5 * time.Second

// Snapshotter exposes the current framebuffer.
type Snapshotter interface {
	Snapshot() *image.Gray
}

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	router    *gin.Engine
	snapshots Snapshotter
	validator auth.Validator

	mu       sync.RWMutex
	sessions map[string]*relay.Session
}

func New(id, addr string, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		router:   r,
		sessions: make(map[string]*relay.Session),
	}
	s.registerRoutes()
	return s
}

// Track publishes a session's counters under /status. A later session with the same
// name replaces the earlier one.
func (s *Server) Track(sess *relay.Session) {
	s.mu.Lock()
	s.sessions[sess.Name()] = sess
	s.mu.Unlock()
}

// Untrack drops a finished session. It is a no-op when a newer session has taken the name.
func (s *Server) Untrack(sess *relay.Session) {
	s.mu.Lock()
	if s.sessions[sess.Name()] == sess {
		delete(s.sessions, sess.Name())
	}
	s.mu.Unlock()
}

// SetSnapshotter enables /snapshot.png.
func (s *Server) SetSnapshotter(snap Snapshotter) {
	s.snapshots = snap
}

// SetAuth requires a bearer token on /status, /opcodes and /snapshot.png. Health, readiness
// and metrics stay open for health checks and scrapers.
func (s *Server) SetAuth(v auth.Validator) {
	s.validator = v
}

func (s *Server) guard(c *gin.Context) {
	if s.validator == nil {
		c.Next()
		return
	}
	if err := auth.Check(s.validator, c.GetHeader("Authorization")); err != nil {
		log.Debug().Str("path", c.Request.URL.Path).Msg("admin.guard rejected request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.sessionCount() > 0
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/status", s.guard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":  s.ID,
			"sessions": s.sessionStats(),
		})
	})

	s.router.GET("/opcodes", s.guard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"opcodes": listOpcodes()})
	})

	s.router.GET("/snapshot.png", s.guard, func(c *gin.Context) {
		if s.snapshots == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "surface has no framebuffer"})
			return
		}
		c.Header("Content-Type", "image/png")
		c.Status(http.StatusOK)
		if err := png.Encode(c.Writer, s.snapshots.Snapshot()); err != nil {
			log.Error().Err(err).Msg("admin.snapshot encode failed")
		}
	})
}

// Serve runs the HTTP server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("admin.Serve listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type SessionStatus struct {
	Name  string      `json:"name"`
	Stats relay.Stats `json:"stats"`
}

func (s *Server) sessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) sessionStats() []SessionStatus {
	s.mu.RLock()
	out := make([]SessionStatus, 0, len(s.sessions))
	for name, sess := range s.sessions {
		out = append(out, SessionStatus{Name: name, Stats: sess.Stats()})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

type OpcodeInfo struct {
	Opcode string `json:"opcode"`
	Name   string `json:"name"`
	Args   string `json:"args"`
}

func listOpcodes() []OpcodeInfo {
	ops := schema.Opcodes()
	list := make([]OpcodeInfo, 0, len(ops))
	for _, op := range ops {
		shape, _ := schema.Lookup(op)
		list = append(list, OpcodeInfo{
			Opcode: op.String(),
			Name:   protocol.OpcodeName(op),
			Args:   describe(shape),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Opcode < list[j].Opcode
	})
	return list
}

func describe(shape schema.Shape) string {
	switch shape.Kind {
	case schema.KindInts:
		if shape.OptionalInts {
			return "none or " + intsLabel(shape.Ints)
		}
		return intsLabel(shape.Ints)
	case schema.KindFlag:
		return "flag"
	case schema.KindText:
		return "hex text"
	case schema.KindIntsText:
		return intsLabel(shape.Ints) + ", hex name"
	default:
		return "none"
	}
}

func intsLabel(n int) string {
	if n == 1 {
		return "1 int"
	}
	return strconv.Itoa(n) + " ints"
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
