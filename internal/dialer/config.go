package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup and TCP connect to an upstream.
	DialTimeout time.Duration
	// NegotiationTimeout bounds the SOCKS5 handshake with an upstream.
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig
}
