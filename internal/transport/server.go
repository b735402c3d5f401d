package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"herald/internal/logging"
)

// SignatureHeader carries the inbound webhook signature.
const SignatureHeader = "X-Herald-Signature"

// TurnHandler is the per-turn entry point the server forwards to.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sender, text string) ([]string, error)
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	EnableCORS   bool
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AuthToken is the shared secret for signature verification. Empty
	// disables verification (local development only).
	AuthToken   string
	CallbackURL string
}

// Server exposes the inbound webhook, health, and metrics endpoints.
type Server struct {
	cfg      ServerConfig
	engine   *gin.Engine
	http     *http.Server
	handler  TurnHandler
	registry *prometheus.Registry
	logger   logging.Logger
}

// NewServer wires the HTTP surface around a turn handler.
func NewServer(cfg ServerConfig, handler TurnHandler, registry *prometheus.Registry, logger logging.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.EnableCORS {
		engine.Use(cors.Default())
	}

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		handler:  handler,
		registry: registry,
		logger:   logging.OrNop(logger),
	}
	s.registerRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/webhook/sms", s.handleWebhook)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.registry != nil {
		s.engine.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form payload"})
		return
	}
	params := map[string]string{}
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if s.cfg.AuthToken != "" {
		signature := c.GetHeader(SignatureHeader)
		if !VerifySignature(s.cfg.AuthToken, s.cfg.CallbackURL, params, signature) {
			// Reject with no processing at all.
			s.logger.Warn("webhook signature rejected from %s", c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": "signature invalid"})
			return
		}
	}

	sender := params["From"]
	body := params["Body"]
	if sender == "" || body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "From and Body are required"})
		return
	}

	messages, err := s.handler.HandleTurn(c.Request.Context(), sender, body)
	if err != nil {
		// The handler degrades internally; an error here still carries a
		// usable response set.
		s.logger.Error("turn error for %s: %v", sender, err)
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Start runs the server until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
