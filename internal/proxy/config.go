package proxy

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/die-net/rotor/internal/dialer"
	"github.com/die-net/rotor/internal/upstream"
)

type Config struct {
	// NegotiationTimeout bounds the whole setup of a connection, from the
	// client greeting until the tunnel is established.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// Dialer configures connections to upstream proxies.
	Dialer dialer.Config

	Pool     *upstream.Pool
	Selector upstream.Selector

	// Reload refreshes Pool. It is called once per reload event.
	Reload func() error

	Logger zerolog.Logger
}
