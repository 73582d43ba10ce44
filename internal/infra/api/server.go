package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/config"
	"trading-academy/internal/infra/logging"
)

// Server owns the listening http.Server; routes come from the caller.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	write := 30 * time.Second
	if cfg.RequestTimeout > 0 {
		write = cfg.RequestTimeout + 5*time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      write,
			IdleTimeout:       60 * time.Second,
		},
		log: logging.Component(logger, "http"),
	}
}

// ListenAndServe blocks until the server stops. ctx becomes the base context
// of every request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	base := context.WithoutCancel(ctx)
	s.srv.BaseContext = func(net.Listener) context.Context { return base }
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.srv.Shutdown(ctx)
}
