package node

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fzft/go-mini-redis/commands"
	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/metrics"
	"github.com/fzft/go-mini-redis/resp"
)

// ReaderHandler serves a single client stream until it ends.
type ReaderHandler interface {
	Serve(ctx context.Context, rw io.ReadWriter) error
}

// Handler runs the read, parse, dispatch, write loop of one connection
// against the shared store.
type Handler struct {
	db        *db.RedisDb
	limits    resp.Limits
	nilOnMiss bool
	rateLimit int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

type HandlerOption func(*Handler)

// WithLimits sets the parser limits.
func WithLimits(l resp.Limits) HandlerOption {
	return func(h *Handler) { h.limits = l }
}

// WithNilOnMiss makes GET answer `$-1` for a missing key.
func WithNilOnMiss(on bool) HandlerOption {
	return func(h *Handler) { h.nilOnMiss = on }
}

// WithRateLimit caps commands per second on each connection. 0 disables it.
func WithRateLimit(perSecond int) HandlerOption {
	return func(h *Handler) { h.rateLimit = perSecond }
}

func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(store *db.RedisDb, opts ...HandlerOption) *Handler {
	h := &Handler{
		db:     store,
		limits: resp.DefaultLimits,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = log.Logger
	}
	return h
}

// Serve reads requests from rw and writes one reply per request. Bytes left
// over after a request stay buffered for the next one, so pipelined
// requests are answered in order.
//
// Serve returns nil when the peer closes the stream. Malformed framing is
// answered with a final error reply and returned; read and write failures
// are returned as they are. Either way the connection is done.
func (h *Handler) Serve(ctx context.Context, rw io.ReadWriter) error {
	var limiter *rate.Limiter
	if h.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.rateLimit), h.rateLimit)
	}

	buf := make([]byte, 0, ProtoIOLen)
	chunk := make([]byte, ProtoIOLen)
	for {
		off := 0
		for {
			value, n, err := h.limits.Parse(buf[off:])
			if err != nil {
				h.metrics.ProtocolError()
				_, _ = rw.Write(protocolErrorReply(err).ToBytes())
				return err
			}
			if n == 0 {
				break
			}
			off += n

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}

			reply := h.Exec(value)
			_, isErr := reply.(resp.Error)
			h.metrics.Reply(isErr)
			if _, err := rw.Write(reply.ToBytes()); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
		}
		buf = buf[:copy(buf, buf[off:])]

		n, err := rw.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) > 0 {
					h.logger.Debug("peer closed with a partial request buffered", zap.Int("bytes", len(buf)))
				}
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
	}
}

// Exec executes one parsed request and returns the reply to send.
func (h *Handler) Exec(value resp.Node) resp.Node {
	cmd, ok := commands.FromValue(value)
	if !ok {
		return SharedInvalidCommandErr
	}
	h.metrics.Command(cmd.Name())
	h.logger.Debug("exec", zap.String("command", cmd.Name()))

	switch c := cmd.(type) {
	case commands.Ping:
		return resp.SimpleString{Value: c.Message}
	case commands.Echo:
		return resp.SimpleString{Value: c.Message}
	case commands.Get:
		if value, ok := h.db.Get(c.Key); ok {
			return resp.SimpleString{Value: value}
		}
		if h.nilOnMiss {
			return SharedNullBulk
		}
		return SharedNoKeyErr
	case commands.Set:
		h.db.Set(c.Key, c.Value)
		return SharedOk
	default:
		return SharedUnsupportedErr
	}
}

func protocolErrorReply(err error) resp.Error {
	if errors.Is(err, resp.ErrLimitExceeded) {
		return SharedLimitErr
	}
	return resp.Error{Message: "ERR Protocol error: " + err.Error()}
}
