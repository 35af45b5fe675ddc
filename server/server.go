// Package server exposes the engine over HTTP for the chat and transport layer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/engine"
	"github.com/hrygo/focusmind/server/middleware"
	apiv1 "github.com/hrygo/focusmind/server/router/api/v1"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of one engine.
type Server struct {
	Profile *profile.Profile
	Engine  *engine.Engine

	echoServer *echo.Echo
	httpServer *http.Server
}

// NewServer builds the echo instance and mounts the v1 routes. snapshot, when
// not nil, receives pushed activity data.
func NewServer(p *profile.Profile, eng *engine.Engine, snapshot *activity.Snapshot) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			slog.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
				"duration_ms", v.Latency.Milliseconds())
			return nil
		},
	}))

	limiter := middleware.NewRateLimiter(p.RateLimit.RPS, p.RateLimit.Burst)
	apiv1.NewAPIV1Service(p, eng, snapshot).RegisterRoutes(e, limiter.Middleware())

	return &Server{
		Profile:    p,
		Engine:     eng,
		echoServer: e,
		httpServer: &http.Server{
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start starts the engine loops and serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}

	if err := s.Engine.Start(ctx); err != nil {
		_ = listener.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("focusmind server starting", "addr", addr, "mode", s.Profile.Mode, "driver", s.Profile.Driver)
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		return s.Shutdown(context.Background())
	})
	return g.Wait()
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the engine.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.Engine.Stop()
	if err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}
	slog.Info("server stopped")
	return nil
}
