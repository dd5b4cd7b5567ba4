// Package web serves the dashboard page, the REST endpoints, and the
// WebSocket query channel.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hyprpilot/internal/daemon"
	"hyprpilot/internal/hypr"
	"hyprpilot/internal/store"
)

// Service is what the HTTP layer needs from the daemon.
type Service interface {
	HandleQuery(ctx context.Context, query string, withScreenshot bool) daemon.QueryResult
	State(ctx context.Context) daemon.SystemState
	Keybindings() []store.Keybinding
	History(ctx context.Context, limit int) ([]store.CommandRecord, error)
	Conversations(ctx context.Context, limit int) ([]store.ConversationTurn, error)
	Stats(ctx context.Context) (store.Stats, error)
	OnEvent(obs hypr.Observer) func()
}

// historyConversationLimit caps the conversation turns bundled into a
// history response alongside the command log.
const historyConversationLimit = 50

// Server hosts the dashboard and API on one listener.
type Server struct {
	log     *zap.Logger
	svc     Service
	hub     *hub
	httpSrv *http.Server
}

// New builds the server with its routes registered.
func New(log *zap.Logger, svc Service, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{
		log: log,
		svc: svc,
		hub: newHub(log, svc),
		httpSrv: &http.Server{
			Addr:    addr,
			Handler: engine,
		},
	}

	engine.GET("/", s.handleIndex)
	engine.GET("/api/status", s.handleStatus)
	engine.GET("/api/keybindings", s.handleKeybindings)
	engine.GET("/api/history", s.handleHistory)
	engine.GET("/api/conversations", s.handleConversations)
	engine.GET("/api/stats", s.handleStats)
	engine.GET("/ws", s.hub.handleWS)

	return s
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	unsubscribe := s.svc.OnEvent(s.hub.broadcastEvent)
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", zap.String("addr", s.httpSrv.Addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.closeAll()
		if err := s.httpSrv.Shutdown(shutCtx); err != nil {
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

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(dashboardPage))
}

func (s *Server) handleStatus(c *gin.Context) {
	state := s.svc.State(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":    "running",
		"timestamp": state.Timestamp,
		"clients":   s.hub.clientCount(),
		"system":    state.System,
		"compositor": gin.H{
			"activeWindow": state.Desktop.ActiveWindow,
			"workspace":    state.Desktop.Workspace,
		},
	})
}

func (s *Server) handleKeybindings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"keybindings": s.svc.Keybindings()})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	records, err := s.svc.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	turns, err := s.svc.Conversations(c.Request.Context(), historyConversationLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": records, "conversations": turns})
}

func (s *Server) handleConversations(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	turns, err := s.svc.Conversations(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": turns})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
