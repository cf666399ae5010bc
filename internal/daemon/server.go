// Package daemon accepts transport commands and hands them to the melody
// player.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/zing-audio/zing/internal/config"
	"github.com/zing-audio/zing/internal/melody"
	"github.com/zing-audio/zing/internal/protocol"
)

// Dispatcher executes commands. *melody.Player implements it.
type Dispatcher interface {
	HandleCommand(cmd protocol.Command)
	Status() melody.Status
}

// Listen binds the unix socket at path, replacing a stale socket file left by
// a previous run, and sets its permissions to mode.
func Listen(path string, mode fs.FileMode) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := os.Chmod(path, mode); err != nil {
		ln.Close()
		return nil, fmt.Errorf("set socket permissions: %w", err)
	}
	return ln, nil
}

type Server struct {
	dispatcher  Dispatcher
	logger      *slog.Logger
	readTimeout time.Duration
	maxBytes    int64
}

func NewServer(d Dispatcher, cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		dispatcher:  d,
		logger:      logger,
		readTimeout: time.Duration(cfg.ReadTimeout),
		maxBytes:    cfg.MaxMessageBytes,
	}
}

// Serve handles connections one at a time until ctx is done. Each connection
// carries exactly one command and gets no reply.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("connection failed", "err", err)
			continue
		}
		s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		s.logger.Warn("could not set read deadline", "err", err)
	}
	cmd, err := protocol.ReadCommand(conn, s.maxBytes)
	if err != nil {
		s.logger.Warn("could not decode stream", "err", err)
		return
	}
	s.dispatcher.HandleCommand(cmd)
}

// Run serves the unix socket and, when cfg.HTTPAddr is set, the HTTP control
// API until ctx is done.
func Run(ctx context.Context, cfg *config.Config, d Dispatcher, logger *slog.Logger) error {
	ln, err := Listen(cfg.SocketPath, cfg.SocketMode)
	if err != nil {
		return err
	}
	defer os.Remove(cfg.SocketPath)

	errc := make(chan error, 1)
	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           NewHTTPHandler(d, cfg.HTTPOrigins, logger),
			ReadHeaderTimeout: time.Duration(cfg.ReadTimeout),
		}
		go func() {
			logger.Info("http control api listening", "addr", cfg.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http control api: %w", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case err := <-errc:
			logger.Error("shutting down", "err", err)
			errc <- err // returned below
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("zing daemon running", "socket", cfg.SocketPath)
	err = NewServer(d, cfg, logger).Serve(ctx, ln)

	if httpSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("http shutdown", "err", serr)
		}
	}
	select {
	case herr := <-errc:
		return herr
	default:
	}
	return err
}
