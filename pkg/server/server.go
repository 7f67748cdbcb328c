// Package server exposes session telemetry and controls over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/config"
	"github.com/itohio/gowheel/pkg/control"
	"github.com/itohio/gowheel/pkg/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Controller is the part of a session the server drives.
type Controller interface {
	Snapshot() session.Snapshot
	History() session.History
	DispatchText(ctx context.Context, text string) (control.Resistance, error)
	SetMode(m control.Mode) error
}

var _ Controller = (*session.Session)(nil)

// Server serves the remote telemetry API.
type Server struct {
	cfg      config.ServerConfig
	ctrl     Controller
	logger   *zap.Logger
	engine   *gin.Engine
	http     *http.Server
	upgrader websocket.Upgrader
}

// New creates a Server. Call Run to start listening.
func New(cfg config.ServerConfig, ctrl Controller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = config.Default().Server.StreamInterval
	}

	s := &Server{
		cfg:    cfg,
		ctrl:   ctrl,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}
	s.engine = s.setupRouter()
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Server listening", zap.String("address", s.cfg.Address))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(s.recovery(), s.requestLogger(), s.cors())

	api := router.Group("/api/v1")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/history", s.handleHistory)
		api.POST("/resistance", s.handleResistance)
		api.PUT("/mode", s.handleMode)
		api.GET("/ws", s.handleStream)
	}
	return router
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stacktrace"),
		)
		failure(c, errors.New("internal server error"))
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) cors() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) > 0 {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return cors.New(cfg)
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		return false
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	success(c, s.ctrl.Snapshot())
}

func (s *Server) handleHistory(c *gin.Context) {
	success(c, s.ctrl.History())
}

// handleResistance takes the resistance as plain text, e.g. "42.5".
func (s *Server) handleResistance(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		failure(c, err)
		return
	}

	r, err := s.ctrl.DispatchText(c.Request.Context(), string(body))
	if err != nil {
		failure(c, err)
		return
	}
	success(c, gin.H{"resistance": r.Float64()})
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) handleMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, &control.ValidationError{Reason: err.Error()})
		return
	}

	m, err := control.ParseMode(req.Mode)
	if err != nil {
		failure(c, &control.ValidationError{Input: req.Mode, Reason: "unknown mode"})
		return
	}
	if err := s.ctrl.SetMode(m); err != nil {
		failure(c, err)
		return
	}
	success(c, gin.H{"mode": m})
}

// handleStream pushes a snapshot every stream interval until the client leaves.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	clientID := uuid.New().String()
	logger := s.logger.With(zap.String("client_id", clientID))
	logger.Info("Stream client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	closed := make(chan struct{})
	go s.readPump(conn, closed)
	s.writePump(c.Request.Context(), conn, closed, logger)

	conn.Close()
	logger.Info("Stream client disconnected")
}

// readPump discards client messages and signals when the connection drops.
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, closed <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s.ctrl.Snapshot()); err != nil {
				logger.Debug("Stream write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
