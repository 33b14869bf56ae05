package node

import (
	"net"
	"sync/atomic"

	"github.com/fzft/go-mini-redis/resp"
)

// Shared replies.
var (
	SharedOk       = resp.SimpleString{Value: "OK"}
	SharedNullBulk = resp.NullBlob{}

	SharedInvalidCommandErr = resp.Error{Message: "ERR Invalid command"}
	SharedNoKeyErr          = resp.Error{Message: "ERR Key not found"}
	SharedUnsupportedErr    = resp.Error{Message: "ERR Unsupported command"}
	SharedLimitErr          = resp.Error{Message: "ERR Protocol limit exceeded"}
)

// Client is an accepted connection tracked by the Server.
type Client struct {
	id     uint64
	conn   net.Conn
	closed atomic.Bool
}

func newClient(id uint64, conn net.Conn) *Client {
	return &Client{id: id, conn: conn}
}

func (c *Client) GetID() uint64 {
	return c.id
}

// Ip returns the remote address of the connection.
func (c *Client) Ip() string {
	return c.conn.RemoteAddr().String()
}

// Close closes the connection once; later calls return nil.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
