// Package devserver is an in-memory implementation of the CircularNest REST
// contract. It backs local development and the end-to-end tests; nothing it
// stores survives a restart.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/CircularNest/internal/config"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/signing"
)

// Server hosts the contract routes.
type Server struct {
	cfg      *config.Config
	store    *MemoryStore
	tokens   *tokenIssuer
	signer   *signing.Signer
	validate *validator.Validate
	engine   *gin.Engine
	once     sync.Once
}

// New builds a Server and seeds the administrator account when
// cfg.AdminEmail and cfg.AdminPassword are set. The upload cap never exceeds
// config.MaxFileSize.
func New(cfg *config.Config, store *MemoryStore, signer *signing.Signer) (*Server, error) {
	if cfg.MaxFileSize <= 0 || cfg.MaxFileSize > config.MaxFileSize {
		capped := *cfg
		capped.MaxFileSize = config.MaxFileSize
		cfg = &capped
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		tokens:   &tokenIssuer{secret: cfg.JWTSecret, ttl: cfg.TokenTTL, now: time.Now},
		signer:   signer,
		validate: validator.New(),
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := s.SeedUser(cfg.AdminEmail, cfg.AdminPassword, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}
	s.engine = s.routes()
	return s, nil
}

// SeedUser creates an account directly, bypassing the signup role check.
func (s *Server) SeedUser(email, password string, role model.Role) (model.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return model.User{}, err
	}
	return s.store.CreateUser(model.User{ID: uuid.NewString(), Email: email, Role: role}, hash)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on cfg.Address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	var httpServer *http.Server
	s.once.Do(func() {
		httpServer = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	if httpServer == nil {
		return errors.New("devserver: Serve called twice")
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	log.Printf("devserver listening on %s", s.cfg.Address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	r.GET("/api/health", s.handleHealth)
	r.GET("/files/:id", s.handleSignedFile)
	r.HEAD("/files/:id", s.handleSignedFile)
	r.GET("/circulars", s.authOptional(), s.handleListCirculars(true))

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", s.handleSignup)
		auth.POST("/login", s.handleLogin)
		auth.GET("/me", s.authRequired(), s.handleMe)
		auth.PUT("/profile", s.authRequired(), s.handleProfile)
	}

	circulars := r.Group("/api/circulars")
	{
		circulars.GET("", s.authOptional(), s.handleListCirculars(false))
		circulars.POST("/upload", s.authRequired(), adminOnly(), s.handleAdminUpload)
		circulars.GET("/:id", s.authOptional(), s.handleGetCircular)
		circulars.GET("/:id/download", s.authOptional(), s.handleDownloadCircular)
		circulars.PUT("/:id", s.authRequired(), adminOnly(), s.handleUpdateCircular)
		circulars.PUT("/:id/status", s.authRequired(), adminOnly(), s.handleCircularStatus)
		circulars.DELETE("/:id", s.authRequired(), adminOnly(), s.handleDeleteCircular)
	}

	pending := r.Group("/api/pending")
	{
		pending.POST("/upload", s.authRequired(), s.handleSubmit)
		pending.POST("/guest-upload", s.handleGuestSubmit)
		pending.GET("", s.authRequired(), adminOnly(), s.handleListPending)
		pending.GET("/my-submissions", s.authRequired(), s.handleMySubmissions)
		pending.PUT("/:id/approve", s.authRequired(), adminOnly(), s.handleReview(model.StatusApproved))
		pending.PUT("/:id/reject", s.authRequired(), adminOnly(), s.handleReview(model.StatusRejected))
		pending.DELETE("/:id", s.authRequired(), s.handleDeletePending)
		pending.GET("/:id/file", s.authRequired(), s.handlePendingFile)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func respond(c *gin.Context, status int, payload gin.H) {
	payload["success"] = true
	c.JSON(status, payload)
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
