package dialer

import (
	"context"
	"fmt"
	"net"

	"github.com/die-net/rotor/internal/socks5"
)

type directDialer struct {
	cfg Config
}

// NewDirectDialer returns a Dialer that connects straight to address.
// Failures wrap socks5.ErrConnect.
func NewDirectDialer(cfg Config) Dialer {
	return &directDialer{cfg: cfg}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.cfg.DialTimeout}

	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s %s: %w", socks5.ErrConnect, network, address, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	return conn, nil
}
