package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/die-net/rotor/internal/socks5"
	"github.com/die-net/rotor/internal/upstream"
)

// Conn is a tunnel through an upstream SOCKS5 proxy.
type Conn struct {
	net.Conn
	// BoundAddr and BoundPort are what the upstream reported in its CONNECT
	// reply.
	BoundAddr socks5.Addr
	BoundPort uint16
}

// SOCKS5ProxyDialer opens tunnels through one upstream SOCKS5 proxy.
type SOCKS5ProxyDialer struct {
	cfg      Config
	upstream upstream.Descriptor
	direct   Dialer
}

func NewSOCKS5ProxyDialer(cfg Config, up upstream.Descriptor) *SOCKS5ProxyDialer {
	return &SOCKS5ProxyDialer{cfg: cfg, upstream: up, direct: NewDirectDialer(cfg)}
}

// Upstream returns the proxy this dialer goes through.
func (d *SOCKS5ProxyDialer) Upstream() upstream.Descriptor {
	return d.upstream
}

// DialContext dials address ("host:port") through the upstream.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: invalid port", address)
	}
	addr, err := socks5.ParseHost(host)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}

	c, err := d.DialSOCKS(ctx, addr, uint16(port))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DialSOCKS connects to the upstream, negotiates, and asks it to CONNECT to
// addr:port. The handshake is bounded by the negotiation timeout and aborted
// if ctx is cancelled; the returned tunnel has no deadline set.
func (d *SOCKS5ProxyDialer) DialSOCKS(ctx context.Context, addr socks5.Addr, port uint16) (*Conn, error) {
	conn, err := d.direct.DialContext(ctx, "tcp", d.upstream.Addr)
	if err != nil {
		return nil, err
	}

	if d.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.cfg.NegotiationTimeout))
	}
	// Unblock the handshake if ctx ends first.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	bound, boundPort, err := socks5.ClientDial(conn, d.upstream.Auth, addr, port)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, fmt.Errorf("socks5 proxy %s: %w", d.upstream, err)
	}

	_ = conn.SetDeadline(time.Time{})
	return &Conn{Conn: conn, BoundAddr: bound, BoundPort: boundPort}, nil
}
