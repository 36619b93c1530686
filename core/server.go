// Package core serves pipesh sessions over SSH.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/metrics"
	"github.com/josephlewis42/pipesh/core/repl"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	loginAccepted = "accepted"
	loginRejected = "rejected"

	sessionKindSSH = "ssh"
)

// Server runs a REPL for every SSH session, and optionally exports metrics
// over HTTP.
type Server struct {
	configuration *config.Configuration
	logger        *logger.Logger
	metrics       *metrics.Metrics
	sshServer     *ssh.Server
	metricsServer *http.Server
}

// NewServer creates a server listening on the configured ports.
func NewServer(configuration *config.Configuration, log *logger.Logger, m *metrics.Metrics) (*Server, error) {
	signer, err := configuration.HostSigner()
	if err != nil {
		return nil, fmt.Errorf("loading host key: %w", err)
	}

	server := &Server{
		configuration: configuration,
		logger:        log,
		metrics:       m,
	}

	server.sshServer = &ssh.Server{
		Addr:            fmt.Sprintf(":%d", configuration.SSH.Port),
		Handler:         server.HandleSession,
		PasswordHandler: server.checkPassword,
	}
	server.sshServer.AddHostKey(signer)

	if addr := configuration.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
		server.metricsServer = &http.Server{Addr: addr, Handler: mux}
	}

	return server, nil
}

func (s *Server) checkPassword(ctx ssh.Context, password string) bool {
	ok := s.configuration.CheckPassword(password)
	result := loginRejected
	if ok {
		result = loginAccepted
	}

	s.logger.Info(logger.MessageLogin,
		zap.String(logger.FieldUser, ctx.User()),
		zap.String(logger.FieldResult, result),
		zap.String("remote_addr", ctx.RemoteAddr().String()),
	)
	return ok
}

// HandleSession runs the session's command if it has one, otherwise an
// interactive REPL until the client disconnects.
func (s *Server) HandleSession(sess ssh.Session) {
	log := s.logger.NewSession(sessionKindSSH)
	log.Info("session started",
		zap.String(logger.FieldUser, sess.User()),
		zap.String("remote_addr", sess.RemoteAddr().String()),
	)

	status, err := s.runSession(sess, log)
	if err != nil {
		log.Error("session failed", zap.Error(err))
	}
	log.Info("session ended", zap.Int(logger.FieldCode, status))
	sess.Exit(status)
}

func (s *Server) runSession(sess ssh.Session, log *logger.Logger) (int, error) {
	ptyInfo, winch, isPty := sess.Pty()

	var stdout, stderr io.Writer = sess, sess.Stderr()
	if isPty {
		// Terminals expect carriage returns and show stderr inline.
		stdout = &crlfWriter{w: sess}
		stderr = stdout
	}

	state, err := repl.NewEngineState(s.configuration, log, s.metrics, stdout, stderr)
	if err != nil {
		return 1, err
	}

	if cmd := sess.RawCommand(); cmd != "" {
		return repl.RunScript(sess.Context(), state, cmd, stdout, stderr), nil
	}

	var width atomic.Int64
	width.Store(int64(ptyInfo.Window.Width))
	if isPty {
		go func() {
			for window := range winch {
				width.Store(int64(window.Width))
			}
		}()
	}

	opts := repl.OptionsFromConfig(s.configuration)
	// History belongs to the local user.
	opts.HistoryFile = ""

	r, err := repl.New(state, repl.Terminal{
		Stdin:      io.NopCloser(sess),
		Stdout:     stdout,
		Stderr:     stderr,
		IsTerminal: func() bool { return isPty },
		Width:      func() int { return int(width.Load()) },
		Remote:     true,
	}, opts)
	if err != nil {
		return 1, err
	}
	defer r.Close()

	signals := make(chan ssh.Signal, 1)
	sess.Signals(signals)
	go func() {
		for sig := range signals {
			if sig == ssh.SIGINT {
				r.Interrupt()
			}
		}
	}()

	fmt.Fprint(stdout, s.configuration.SSH.Banner)
	if err := r.Run(sess.Context()); err != nil {
		return 1, err
	}
	return 0, nil
}

// ListenAndServe serves SSH, and metrics if configured, until Shutdown.
func (s *Server) ListenAndServe() error {
	s.serveMetrics()

	s.logger.Info("serving ssh", zap.String("addr", s.sshServer.Addr))
	return ignoreClosed(s.sshServer.ListenAndServe())
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.serveMetrics()

	s.logger.Info("serving ssh", zap.String("addr", l.Addr().String()))
	return ignoreClosed(s.sshServer.Serve(l))
}

func (s *Server) serveMetrics() {
	if s.metricsServer == nil {
		return
	}

	s.logger.Info("serving metrics", zap.String("addr", s.metricsServer.Addr))
	go func() {
		if err := s.metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func ignoreClosed(err error) error {
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for open sessions until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.metricsServer != nil {
		errs = append(errs, s.metricsServer.Shutdown(ctx))
	}
	errs = append(errs, s.sshServer.Shutdown(ctx))
	return errors.Join(errs...)
}

// crlfWriter translates "\n" to "\r\n" for terminals in raw mode.
type crlfWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
