package node

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/metrics"
)

const (
	ProtoIOLen = 1024 * 16 // bytes read from a socket at a time

	maxAcceptDelay = time.Second
)

var ErrServerClosed = errors.New("node: server closed")

// Server accepts TCP connections and runs the handler on each one in its
// own goroutine.
type Server struct {
	addr    string
	handler ReaderHandler
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	ln      net.Listener
	clients map[*Client]struct{}
	closing atomic.Bool
	nextID  atomic.Uint64
	wg      sync.WaitGroup
}

type ServerOption func(*Server)

func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

func WithServerMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

func NewServer(addr string, handler ReaderHandler, opts ...ServerOption) *Server {
	s := &Server{
		addr:    addr,
		handler: handler,
		clients: make(map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Logger
	}
	return s
}

// ListenAndServe listens on the server address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := Listen(ctx, s.addr)
	if err != nil {
		s.logger.Error("listen error", zap.String("addr", s.addr), zap.Error(err))
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Shutdown, then returns
// ErrServerClosed. It never waits for a connection before accepting the
// next one.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("listening on", zap.String("addr", ln.Addr().String()))

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.logger.Warn("accept error, retrying", zap.Duration("delay", delay), zap.Error(err))
			time.Sleep(delay)
			continue
		}
		delay = 0

		c := newClient(s.nextID.Add(1), conn)
		if !s.track(c) {
			_ = c.Close()
			return ErrServerClosed
		}
		go s.serveClient(ctx, c)
	}
}

func (s *Server) serveClient(ctx context.Context, c *Client) {
	defer s.wg.Done()
	defer s.untrack(c)
	defer c.Close()

	logger := s.logger.With(zap.Uint64("client_id", c.GetID()), zap.String("remote", c.Ip()))
	logger.Debug("client connected")
	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	if err := s.handler.Serve(ctx, c.conn); err != nil && !s.closing.Load() {
		logger.Warn("connection closed", zap.Error(err))
		return
	}
	logger.Debug("client disconnected")
}

// track registers c and counts its handler, under the same lock Shutdown
// takes before it waits.
func (s *Server) track(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// Addr returns the listener address, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes every open connection and waits for the
// handlers to return or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.mu.Lock()
	s.closing.Store(true)
	var err error
	if s.ln != nil {
		err = multierr.Append(err, ignoreClosed(s.ln.Close()))
	}
	for c := range s.clients {
		err = multierr.Append(err, ignoreClosed(c.Close()))
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
