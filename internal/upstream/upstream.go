package upstream

import (
	"github.com/die-net/rotor/internal/socks5"
)

// Descriptor describes one upstream SOCKS5 proxy. It is immutable once
// parsed.
type Descriptor struct {
	// Addr is the upstream's host:port.
	Addr string
	// Auth is nil when the upstream takes no credentials.
	Auth *socks5.Auth
}

// String returns the address, with the username when credentials are set.
// The password is never included.
func (d Descriptor) String() string {
	if d.Auth == nil {
		return d.Addr
	}
	return d.Auth.Username + "@" + d.Addr
}
