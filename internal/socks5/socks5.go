package socks5

import (
	"fmt"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	// Version is the SOCKS protocol version spoken on both sides.
	Version byte = 0x05

	MethodNone             byte = txsocks5.MethodNone
	MethodUsernamePassword byte = txsocks5.MethodUsernamePassword
	MethodNoAcceptable     byte = 0xff

	// CmdConnect is the only supported request command.
	CmdConnect byte = txsocks5.CmdConnect

	ATYPIPv4   byte = txsocks5.ATYPIPv4
	ATYPDomain byte = txsocks5.ATYPDomain
	ATYPIPv6   byte = txsocks5.ATYPIPv6

	// userPassVersion is the RFC 1929 sub-negotiation version.
	userPassVersion byte = 0x01
)

// RFC 1928 reply codes.
const (
	RepSuccess             byte = txsocks5.RepSuccess
	RepGeneralFailure      byte = 0x01
	RepNotAllowed          byte = 0x02
	RepNetworkUnreachable  byte = 0x03
	RepHostUnreachable     byte = txsocks5.RepHostUnreachable
	RepConnectionRefused   byte = txsocks5.RepConnectionRefused
	RepTTLExpired          byte = 0x06
	RepCommandNotSupported byte = txsocks5.RepCommandNotSupported
	RepAddressNotSupported byte = 0x08
)

// Auth configures optional username/password authentication for SOCKS5
// negotiation.
type Auth struct {
	Username string
	Password string
}

// Validate checks the RFC 1929 field bounds.
func (a Auth) Validate() error {
	if a.Username == "" || len(a.Username) > 255 {
		return fmt.Errorf("%w: username must be 1-255 bytes", ErrAuth)
	}
	if len(a.Password) > 255 {
		return fmt.Errorf("%w: password must be at most 255 bytes", ErrAuth)
	}
	return nil
}
