// Package hredis is a minimal blocking RESP client used by the cli.
package hredis

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fzft/go-mini-redis/resp"
)

const readChunk = 4 * 1024

var ErrNoCommand = errors.New("hredis: empty command")

// ReplyLimits are the parser limits a Client starts with. The server sends
// stored values back as simple string lines, so a line may be as long as
// the largest bulk string a request can carry.
var ReplyLimits = resp.Limits{
	MaxBulkLen:   resp.DefaultLimits.MaxBulkLen,
	MaxArrayLen:  resp.DefaultLimits.MaxArrayLen,
	MaxInlineLen: resp.DefaultLimits.MaxBulkLen,
	MaxDepth:     resp.DefaultLimits.MaxDepth,
}

// Client is a single connection to a server. It is not safe for
// concurrent use.
type Client struct {
	conn    net.Conn
	buf     []byte // bytes read but not yet parsed
	Timeout time.Duration
	Limits  resp.Limits
}

// Dial connects to addr, a host:port pair.
func Dial(addr string) (*Client, error) {
	return DialTimeout(addr, 0)
}

func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an open connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, Limits: ReplyLimits}
}

// Do sends one command and blocks for its reply. An error reply from the
// server is returned as a resp.Error node, not as an error.
func (c *Client) Do(args ...string) (resp.Node, error) {
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	if c.Timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
			return nil, err
		}
	}
	if _, err := c.conn.Write(resp.ConvertToRESP(args[0], args[1:]...)); err != nil {
		return nil, err
	}
	return c.readReply()
}

// Command formats a command line the printf way and sends it. Words are
// split on spaces; %s takes a string and %d an int, both expanded inside
// the current word.
func (c *Client) Command(format string, args ...interface{}) (resp.Node, error) {
	argv, err := FormatCommand(format, args...)
	if err != nil {
		return nil, err
	}
	return c.Do(argv...)
}

func (c *Client) readReply() (resp.Node, error) {
	chunk := make([]byte, readChunk)
	for {
		node, n, err := c.Limits.Parse(c.buf)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			c.buf = c.buf[:copy(c.buf, c.buf[n:])]
			return node, nil
		}

		m, err := c.conn.Read(chunk)
		c.buf = append(c.buf, chunk[:m]...)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func FormatCommand(format string, args ...interface{}) ([]string, error) {
	var (
		argv []string
		word strings.Builder
		open bool // word has content, possibly empty from a %s
		next int  // index into args
	)
	flush := func() {
		if open {
			argv = append(argv, word.String())
			word.Reset()
			open = false
		}
	}

	for i := 0; i < len(format); i++ {
		switch c := format[i]; c {
		case ' ':
			flush()
			continue
		case '%':
		default:
			word.WriteByte(c)
			open = true
			continue
		}

		i++
		if i == len(format) {
			return nil, fmt.Errorf("format string ended unexpectedly")
		}
		verb := format[i]
		if verb == '%' {
			word.WriteByte('%')
			open = true
			continue
		}
		if next == len(args) {
			return nil, fmt.Errorf("not enough arguments")
		}
		arg := args[next]
		next++

		switch verb {
		case 's':
			str, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string argument at %d", next-1)
			}
			word.WriteString(str)
		case 'd':
			num, ok := arg.(int)
			if !ok {
				return nil, fmt.Errorf("expected an integer argument at %d", next-1)
			}
			word.WriteString(strconv.Itoa(num))
		default:
			return nil, fmt.Errorf("unsupported format specifier: %c", verb)
		}
		open = true
	}
	flush()

	return argv, nil
}
