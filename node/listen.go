package node

import (
	"context"
	"net"
)

// Listen opens a TCP listener on addr with SO_REUSEADDR set where the
// platform supports it, so a restarted server can rebind right away.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: control}
	return lc.Listen(ctx, "tcp", addr)
}
