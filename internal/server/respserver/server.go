package respserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcnannay/peptrackr/internal/core/service"
)

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// MaxConnections caps concurrent clients; 0 means unlimited.
	MaxConnections int
	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds flushing one reply.
	WriteTimeout time.Duration
	// IdleTimeout closes connections that send nothing for this long.
	IdleTimeout time.Duration
}

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 5 * time.Minute
)

func (c *Config) withDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
			s.handler.logger = l
		}
	}
}

// WithRateLimiter enables per-client-IP command rate limiting.
func WithRateLimiter(r *service.RateLimiterRegistry) Option {
	return func(s *Server) { s.handler.limiter = r }
}

// WithObserver sets the command observer (metrics).
func WithObserver(o CommandObserver) Option {
	return func(s *Server) {
		if o != nil {
			s.handler.observer = o
		}
	}
}

// Server is the RESP protocol server.
type Server struct {
	cfg     Config
	handler *commandHandler
	logger  *slog.Logger

	ln      net.Listener
	running atomic.Bool
	slots   chan struct{}

	mu    sync.Mutex
	conns map[*conn]struct{}
	wg    sync.WaitGroup
}

// conn is a single client connection.
type conn struct {
	netConn net.Conn
	br      *bufio.Reader
	rw      *replyWriter
	closed  atomic.Bool
}

func newConn(c net.Conn) *conn {
	return &conn{
		netConn: c,
		br:      bufio.NewReader(c),
		rw:      &replyWriter{w: bufio.NewWriter(c)},
	}
}

func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// clientIP returns the host part of the remote address.
func (c *conn) clientIP() string {
	addr := c.netConn.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// New creates a RESP server over store.
func New(cfg Config, store *service.StoreService, opts ...Option) *Server {
	cfg.withDefaults()

	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
		conns:  make(map[*conn]struct{}),
		handler: &commandHandler{
			store:    store,
			observer: noopObserver{},
			logger:   slog.Default(),
		},
	}
	if cfg.MaxConnections > 0 {
		s.slots = make(chan struct{}, cfg.MaxConnections)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and serves connections in the background.
// Listen errors are returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)

	s.logger.Info("resp server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil {
			s.logger.Error("resp server accept failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines to exit or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	var err error
	if s.ln != nil {
		if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("resp server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		c := newConn(nc)
		if !s.acquire() {
			s.reject(c)
			continue
		}

		s.track(c, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			defer s.track(c, false)
			s.serveConn(ctx, c)
		}()
	}
}

func (s *Server) acquire() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}

// reject answers a client over the connection limit and hangs up.
func (s *Server) reject(c *conn) {
	s.logger.Warn("resp connection rejected", "remote", c.netConn.RemoteAddr(), "max_connections", s.cfg.MaxConnections)
	_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	c.rw.Error("ERR max number of clients reached")
	_ = c.rw.Flush()
	_ = c.Close()
}

func (s *Server) track(c *conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) serveConn(ctx context.Context, c *conn) {
	defer c.Close()

	client := c.clientIP()

	for {
		// Connections may idle between commands.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(c, err)
			return
		}

		// Once a command starts it must arrive within ReadTimeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		args, err := ReadCommand(c.br)
		if err != nil {
			if errors.Is(err, ErrLimitExceeded) {
				s.logger.Warn("resp protocol limit exceeded", "remote", client, "error", err)
				s.replyFatal(c, "ERR protocol limit exceeded")
				return
			}
			if errors.Is(err, ErrProtocol) {
				s.replyFatal(c, "ERR protocol error: "+err.Error())
				return
			}
			s.logReadError(c, err)
			return
		}

		if len(args) == 0 {
			continue
		}

		herr := s.handler.handle(ctx, client, c.rw, args)

		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if err := c.rw.Flush(); err != nil {
			return
		}
		if errors.Is(herr, errQuit) {
			return
		}
	}
}

func (s *Server) replyFatal(c *conn, msg string) {
	_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	c.rw.Error(msg)
	_ = c.rw.Flush()
}

func (s *Server) logReadError(c *conn, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.Debug("resp connection timed out", "remote", c.netConn.RemoteAddr())
		return
	}
	s.logger.Debug("resp connection read error", "remote", c.netConn.RemoteAddr(), "error", err)
}
