package node

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tresp "github.com/tidwall/resp"

	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/metrics"
	"github.com/fzft/go-mini-redis/resp"
)

func startServer(t *testing.T, opts ...ServerOption) (*Server, string) {
	t.Helper()
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), NewHandler(db.New(4)), opts...)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
		assert.ErrorIs(t, <-done, ErrServerClosed)
	})
	return srv, ln.Addr().String()
}

type testClient struct {
	conn net.Conn
	rd   *tresp.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, rd: tresp.NewReader(conn)}
}

func (c *testClient) send(args ...string) (tresp.Value, error) {
	if _, err := c.conn.Write(resp.ConvertToRESP(args[0], args[1:]...)); err != nil {
		return tresp.Value{}, err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		return tresp.Value{}, err
	}
	v, _, err := c.rd.ReadValue()
	return v, err
}

func (c *testClient) do(t *testing.T, args ...string) tresp.Value {
	t.Helper()
	v, err := c.send(args...)
	require.NoError(t, err)
	return v
}

func TestServerRoundTrip(t *testing.T) {
	_, addr := startServer(t)
	c := dial(t, addr)

	v := c.do(t, "PING")
	assert.Equal(t, tresp.SimpleString, v.Type())
	assert.Equal(t, "PONG", v.String())

	v = c.do(t, "ECHO", "hello")
	assert.Equal(t, "hello", v.String())

	v = c.do(t, "GET", "missing")
	require.Equal(t, tresp.Error, v.Type())
	assert.EqualError(t, v.Error(), "ERR Key not found")

	assert.Equal(t, "OK", c.do(t, "SET", "foo", "bar").String())
	assert.Equal(t, "bar", c.do(t, "GET", "foo").String())

	v = c.do(t, "UNKNOWN")
	require.Equal(t, tresp.Error, v.Type())
	assert.EqualError(t, v.Error(), "ERR Invalid command")
	assert.Equal(t, "PONG", c.do(t, "PING").String())
}

func TestServerConnectionsShareStore(t *testing.T) {
	_, addr := startServer(t)

	assert.Equal(t, "OK", dial(t, addr).do(t, "SET", "shared", "1").String())
	assert.Equal(t, "1", dial(t, addr).do(t, "GET", "shared").String())
}

func TestServerConcurrentClients(t *testing.T) {
	_, addr := startServer(t)

	const clients = 8
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		c := dial(t, addr)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			for j := 0; j < 50; j++ {
				val := strconv.Itoa(j)
				v, err := c.send("SET", key, val)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, "OK", v.String())

				v, err = c.send("GET", key)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, val, v.String())
			}
		}(i)
	}
	wg.Wait()
}

func TestServerProtocolErrorClosesOnlyThatConnection(t *testing.T) {
	_, addr := startServer(t)
	good := dial(t, addr)
	bad := dial(t, addr)

	_, err := bad.conn.Write([]byte("*1\r\n$x\r\n"))
	require.NoError(t, err)
	require.NoError(t, bad.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	v, _, err := bad.rd.ReadValue()
	require.NoError(t, err)
	assert.Equal(t, tresp.Error, v.Type())

	_, _, err = bad.rd.ReadValue()
	assert.Error(t, err, "connection should be closed after a protocol error")

	assert.Equal(t, "PONG", good.do(t, "PING").String())
}

func TestServerShutdownClosesClients(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := NewServer(ln.Addr().String(), NewHandler(db.New(1)), WithServerMetrics(m))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	c := dial(t, ln.Addr().String())
	assert.Equal(t, "PONG", c.do(t, "PING").String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connections))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, ErrServerClosed)

	_, _, err = c.rd.ReadValue()
	assert.Error(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Accepted))

	assert.ErrorIs(t, srv.Serve(context.Background(), ln), ErrServerClosed)
}

func TestServerShutdownWaitsForAcceptedClients(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	srv := NewServer(ln.Addr().String(), NewHandler(db.New(1)), WithServerMetrics(m))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	stop := make(chan struct{})
	var dialers sync.WaitGroup
	for i := 0; i < 4; i++ {
		dialers.Add(1)
		go func() {
			defer dialers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
				if err != nil {
					continue
				}
				_, _ = conn.Write(resp.ConvertToRESP("PING"))
				conn.Close()
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	// every accepted connection has finished its handler by now
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Connections))
	assert.ErrorIs(t, <-done, ErrServerClosed)

	close(stop)
	dialers.Wait()
}
