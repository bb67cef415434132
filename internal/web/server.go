// Package web serves the HTTP API over the tracked server set.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/DeFirence/steam-condenser/internal/repo"
	"github.com/DeFirence/steam-condenser/internal/version"
)

const defaultListLimit = 500

type Options struct {
	Logger *slog.Logger
	Addr   string
	Debug  bool
}

type Server struct {
	repo      *repo.ServersRepo
	logger    *slog.Logger
	opts      Options
	startedAt time.Time

	httpServer *http.Server
}

func New(serversRepo *repo.ServersRepo, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		repo:      serversRepo,
		logger:    opts.Logger,
		opts:      opts,
		startedAt: time.Now(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), cors.Default())

	api := router.Group("/api")
	api.GET("/servers", s.handleListServers)
	api.GET("/servers/:addr", s.handleGetServer)
	api.GET("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Run serves the API until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", slog.String("addr", s.opts.Addr))

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleListServers(c *gin.Context) {
	limit := int64(defaultListLimit)
	if param := c.Query("limit"); param != "" {
		parsed, err := strconv.ParseInt(param, 10, 64)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad limit"})
			return
		}
		limit = parsed
	}

	servers, err := s.repo.ListServers(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Unable to list servers", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"servers": servers})
}

func (s *Server) handleGetServer(c *gin.Context) {
	addr, err := netip.ParseAddrPort(c.Param("addr"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad server address"})
		return
	}

	server, err := s.repo.GetServerByAddr(c.Request.Context(), addr)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not tracked"})
		return
	}
	if err != nil {
		s.logger.Error("Unable to get server", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, server)
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.repo.CountServers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	health := gin.H{
		"version": version.Revision,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"servers": count,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		health["host_memory_used_percent"] = vm.UsedPercent
	}
	if uptime, err := host.Uptime(); err == nil {
		health["host_uptime"] = (time.Duration(uptime) * time.Second).String()
	}

	c.JSON(http.StatusOK, health)
}
